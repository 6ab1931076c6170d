package storage

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	apperrors "github.com/anime-shed/snaptune-go/internal/errors"
)

// AzureAudioSource serves pre-rendered snippets stored as
// <container>/<artist-slug>/<title-slug>.mp3
type AzureAudioSource struct {
	client    *azblob.Client
	container string
}

// NewAzureAudioSource connects with a shared key. serviceURL may be empty to
// use the public endpoint of the account.
func NewAzureAudioSource(accountName, accountKey, container, serviceURL string) (*AzureAudioSource, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &AzureAudioSource{client: client, container: container}, nil
}

func (s *AzureAudioSource) Name() string {
	return "azure"
}

// SnippetURL returns the blob URL if the snippet exists
func (s *AzureAudioSource) SnippetURL(ctx context.Context, title, artist string) (string, error) {
	blobClient := s.client.ServiceClient().
		NewContainerClient(s.container).
		NewBlobClient(BlobKey(title, artist))

	if _, err := blobClient.GetProperties(ctx, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return "", apperrors.NewUpstreamError("no custom snippet stored for song", apperrors.ErrNoPreview)
		}
		return "", apperrors.NewUpstreamError("failed to look up custom snippet", err)
	}

	return blobClient.URL(), nil
}

// BlobKey maps a song to its snippet blob name
func BlobKey(title, artist string) string {
	return slug(artist) + "/" + slug(title) + ".mp3"
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "unknown"
	}
	return out
}
