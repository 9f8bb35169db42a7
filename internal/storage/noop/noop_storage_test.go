package noop_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formscan/internal/port"
	"formscan/internal/storage/noop"
)

func TestNoopStorage_DiscardsUpload(t *testing.T) {
	store := noop.NewNoopStorage()

	out, err := store.Upload(context.Background(), port.UploadInput{
		Bucket: "archive",
		Key:    "exports/J1/1.xlsx",
		Body:   strings.NewReader("PK"),
	})

	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out.Location)
}
