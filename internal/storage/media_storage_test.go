package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// минимальный валидный PNG заголовок для проверки сигнатуры
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func newStorageForTest(t *testing.T, maxUploadMB int64) *MediaStorage {
	t.Helper()
	st, err := NewMediaStorage(t.TempDir(), maxUploadMB)
	require.NoError(t, err)
	return st
}

func TestSave_AcceptsPNG(t *testing.T) {
	st := newStorageForTest(t, 1)
	userID := uuid.New()

	relative, mime, size, err := st.Save(context.Background(), userID, "passport.png", bytes.NewReader(pngHeader))

	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, int64(len(pngHeader)), size)
	assert.True(t, strings.HasPrefix(relative, userID.String()))

	f, err := st.Open(context.Background(), relative)
	require.NoError(t, err)
	defer f.Close()

	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, content)
}

func TestSave_RejectsUnknownSignature(t *testing.T) {
	st := newStorageForTest(t, 1)

	_, _, _, err := st.Save(context.Background(), uuid.New(), "notes.txt", strings.NewReader("просто текст, а не изображение"))

	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestSave_RejectsOversizedFile(t *testing.T) {
	st := newStorageForTest(t, 0) // лимит 0 МБ

	payload := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 1024)...)
	_, _, _, err := st.Save(context.Background(), uuid.New(), "big.png", bytes.NewReader(payload))

	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestOpen_RejectsPathTraversal(t *testing.T) {
	st := newStorageForTest(t, 1)

	_, err := st.Open(context.Background(), "../../etc/passwd")

	assert.Error(t, err)
}

func TestDelete_MissingFileIsNotError(t *testing.T) {
	st := newStorageForTest(t, 1)

	err := st.Delete(context.Background(), uuid.NewString()+"/missing.png")

	assert.NoError(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "doc.png", sanitizeFilename("../../doc.png"))
	assert.Equal(t, "document", sanitizeFilename(".."))
	assert.Equal(t, "passport.jpg", sanitizeFilename("/uploads/passport.jpg"))
}
