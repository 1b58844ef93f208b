package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

// fileHeader builds a multipart file header the way gin hands it to handlers.
func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

func TestDiskStoreSaveAndDelete(t *testing.T) {
	root := t.TempDir()
	store := NewDiskStore(root, "/uploads/", 1<<20)
	ctx := context.Background()

	att, err := store.Save(ctx, "gallery", fileHeader(t, "rose.png", pngBytes), ImageTypes)
	require.NoError(t, err)
	assert.Equal(t, "rose.png", att.Name)
	assert.Equal(t, "image/png", att.MimeType)
	assert.True(t, strings.HasPrefix(att.URL, "/uploads/gallery/"))
	assert.True(t, strings.HasSuffix(att.URL, ".png"))

	onDisk := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(att.URL, "/uploads/")))
	data, err := os.ReadFile(onDisk)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	require.NoError(t, store.Delete(ctx, att.URL))
	_, err = os.Stat(onDisk)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Delete(ctx, att.URL), "deleting twice is fine")
	require.NoError(t, store.Delete(ctx, "/uploads/../etc/passwd"))
	require.NoError(t, store.Delete(ctx, "https://elsewhere.example.com/a.png"))
}

func TestDiskStoreRejectsUnsupportedAndOversized(t *testing.T) {
	store := NewDiskStore(t.TempDir(), "/uploads", 16)
	ctx := context.Background()

	_, err := store.Save(ctx, "gallery", fileHeader(t, "notes.png", []byte("just text")), ImageTypes)
	assert.ErrorIs(t, err, ErrValidation, "the extension does not decide the type")

	_, err = store.Save(ctx, "gallery", fileHeader(t, "big.png", pngBytes), ImageTypes)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAttachmentTypesAcceptPDF(t *testing.T) {
	store := NewDiskStore(t.TempDir(), "/uploads", 1<<20)
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

	att, err := store.Save(context.Background(), "chat", fileHeader(t, "brief.pdf", pdf), AttachmentTypes)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", att.MimeType)

	_, err = store.Save(context.Background(), "profiles", fileHeader(t, "brief.pdf", pdf), ImageTypes)
	assert.ErrorIs(t, err, ErrValidation)
}
