package services

import (
	"context"
	"fmt"
	"io"
	"sync"

	"inkdesk-backend/config"
	"inkdesk-backend/models"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// PDFRenderer turns an HTML document into PDF bytes.
type PDFRenderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// RodRenderer prints HTML through a headless Chrome, launched lazily or
// reached at a remote control URL.
type RodRenderer struct {
	cfg    config.PDFConfig
	logger *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

func NewRodRenderer(cfg config.PDFConfig, logger *zap.Logger) *RodRenderer {
	return &RodRenderer{cfg: cfg, logger: logger}
}

func (r *RodRenderer) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	controlURL := r.cfg.ChromeURL
	if controlURL == "" {
		l := launcher.New().Headless(true)
		if r.cfg.ChromeBin != "" {
			l = l.Bin(r.cfg.ChromeBin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect chrome: %w", err)
	}
	r.logger.Info("pdf browser connected")
	r.browser = browser
	return browser, nil
}

// reset drops a broken browser so the next call reconnects.
func (r *RodRenderer) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		_ = r.browser.Close()
		r.browser = nil
	}
}

func (r *RodRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	browser, err := r.connect()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFUnavailable, err)
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		r.reset()
		return nil, fmt.Errorf("%w: open page: %v", ErrPDFUnavailable, err)
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("%w: set content: %v", ErrPDFUnavailable, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: wait load: %v", ErrPDFUnavailable, err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: print: %v", ErrPDFUnavailable, err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: read pdf: %v", ErrPDFUnavailable, err)
	}
	return data, nil
}

func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}

type quoteDocument struct {
	Quote  *models.Quote
	Artist *models.User
	Client *models.User
}

// QuoteHTML renders the printable quote document.
func QuoteHTML(q *models.Quote, artist, client *models.User) (string, error) {
	return renderTemplate("quote_pdf.html", quoteDocument{Quote: q, Artist: artist, Client: client})
}
