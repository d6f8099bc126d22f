package drive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// FileSource - a user's Drive, as seen by one sync job
type FileSource interface {
	ListImages(ctx context.Context, folderID string) ([]File, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// SourceFactory - builds a FileSource from the job's tokens
type SourceFactory func(ctx context.Context, job SyncJob) (FileSource, error)

// accessTokenLifetime - Google access tokens live an hour; refresh a little early
const accessTokenLifetime = 55 * time.Minute

// NewGoogleSourceFactory - Drive v3 client per job with the app's OAuth client
func NewGoogleSourceFactory(clientID, clientSecret string) SourceFactory {
	oauthConfig := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gdrive.DriveReadonlyScope},
	}

	return func(ctx context.Context, job SyncJob) (FileSource, error) {
		token := &oauth2.Token{
			AccessToken:  job.AccessToken,
			RefreshToken: job.RefreshToken,
			TokenType:    "Bearer",
		}
		if job.RefreshToken != "" {
			token.Expiry = job.EnqueuedAt.Add(accessTokenLifetime)
		}

		svc, err := gdrive.NewService(ctx, option.WithTokenSource(oauthConfig.TokenSource(ctx, token)))
		if err != nil {
			return nil, fmt.Errorf("creating drive service: %w", err)
		}
		return &googleSource{service: svc}, nil
	}
}

type googleSource struct {
	service *gdrive.Service
}

func (s *googleSource) ListImages(ctx context.Context, folderID string) ([]File, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType contains 'image/' and trashed = false",
		strings.ReplaceAll(folderID, "'", `\'`))

	var files []File
	pageToken := ""
	for {
		call := s.service.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType)").
			PageSize(100).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("listing drive folder %s: %w", folderID, err)
		}
		for _, f := range resp.Files {
			files = append(files, File{ID: f.Id, Name: f.Name, MimeType: f.MimeType})
		}

		if resp.NextPageToken == "" {
			return files, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (s *googleSource) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := s.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("downloading drive file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading drive file %s: %w", fileID, err)
	}
	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("drive file %s exceeds %d bytes", fileID, maxDownloadSize)
	}
	return data, nil
}
