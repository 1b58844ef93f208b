package controllers

import (
	"fmt"
	"net/http"

	"inkdesk-backend/services"
	"inkdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RejectQuoteInput struct {
	Reason string `json:"reason"`
}

// QuoteController exposes the quote lifecycle. Artists author and send
// quotes, clients accept or reject them.
type QuoteController struct {
	quotes *services.QuoteService
	logger *zap.Logger
}

func NewQuoteController(quotes *services.QuoteService, logger *zap.Logger) *QuoteController {
	return &QuoteController{quotes: quotes, logger: logger}
}

func (qc *QuoteController) CreateQuote(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	draft, ok := qc.bindDraft(c)
	if !ok {
		return
	}
	quote, err := qc.quotes.Create(c.Request.Context(), artistID, draft)
	if err != nil {
		respondServiceError(c, qc.logger, err)
		return
	}
	c.JSON(http.StatusCreated, quote)
}

func (qc *QuoteController) GetQuotes(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}
	p := utils.ParsePagination(c)
	quotes, total, err := qc.quotes.List(c.Request.Context(), userID, role, services.QuoteFilter{
		Status:     c.Query("status"),
		Pagination: p,
	})
	if err != nil {
		respondServiceError(c, qc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes, "meta": p.Meta(total)})
}

func (qc *QuoteController) GetQuote(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}
	quoteID, ok := parseIDParam(c, "id", "quote")
	if !ok {
		return
	}
	quote, err := qc.quotes.Get(c.Request.Context(), userID, role, quoteID)
	if err != nil {
		respondServiceError(c, qc.logger, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (qc *QuoteController) UpdateQuote(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	quoteID, ok := parseIDParam(c, "id", "quote")
	if !ok {
		return
	}
	draft, ok := qc.bindDraft(c)
	if !ok {
		return
	}
	quote, err := qc.quotes.Update(c.Request.Context(), artistID, quoteID, draft)
	if err != nil {
		respondServiceError(c, qc.logger, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (qc *QuoteController) DeleteQuote(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	quoteID, ok := parseIDParam(c, "id", "quote")
	if !ok {
		return
	}
	if err := qc.quotes.Delete(c.Request.Context(), artistID, quoteID); err != nil {
		respondServiceError(c, qc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Quote deleted successfully"})
}

func (qc *QuoteController) SendQuote(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	quoteID, ok := parseIDParam(c, "id", "quote")
	if !ok {
		return
	}
	quote, err := qc.quotes.Send(c.Request.Context(), artistID, quoteID)
	if err != nil {
		respondServiceError(c, qc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Quote sent", "quote": quote})
}

func (qc *QuoteController) AcceptQuote(c *gin.Context) {
	clientID, _, ok := currentUser(c)
	if !ok {
		return
	}
	quoteID, ok := parseIDParam(c, "id", "quote")
	if !ok {
		return
	}
	quote, project, err := qc.quotes.Accept(c.Request.Context(), clientID, quoteID)
	if err != nil {
		respondServiceError(c, qc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Quote accepted", "quote": quote, "project": project})
}

func (qc *QuoteController) RejectQuote(c *gin.Context) {
	clientID, _, ok := currentUser(c)
	if !ok {
		return
	}
	quoteID, ok := parseIDParam(c, "id", "quote")
	if !ok {
		return
	}
	var input RejectQuoteInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
			return
		}
	}
	quote, err := qc.quotes.Reject(c.Request.Context(), clientID, quoteID, input.Reason)
	if err != nil {
		respondServiceError(c, qc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Quote declined", "quote": quote})
}

func (qc *QuoteController) ViewPDF(c *gin.Context) {
	qc.servePDF(c, "inline")
}

func (qc *QuoteController) DownloadPDF(c *gin.Context) {
	qc.servePDF(c, "attachment")
}

func (qc *QuoteController) servePDF(c *gin.Context, disposition string) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}
	quoteID, ok := parseIDParam(c, "id", "quote")
	if !ok {
		return
	}
	quote, pdf, err := qc.quotes.RenderPDF(c.Request.Context(), userID, role, quoteID)
	if err != nil {
		respondServiceError(c, qc.logger, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, quote.QuoteNumber+".pdf"))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// bindDraft decodes the itemized or simple quote body.
func (qc *QuoteController) bindDraft(c *gin.Context) (services.QuoteDraft, bool) {
	body, err := c.GetRawData()
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return services.QuoteDraft{}, false
	}
	draft, err := services.ParseQuotePayload(body)
	if err != nil {
		respondServiceError(c, qc.logger, err)
		return services.QuoteDraft{}, false
	}
	return draft, true
}
