package chat

import (
	"bytes"
	"context"

	"github.com/ziadkadry99/gemchat/internal/audit"
	"github.com/ziadkadry99/gemchat/internal/presenter"
)

// Backend returns a presenter.Backend that calls the Service in process.
// Errors are reported exactly as the HTTP API would report them.
func (s *Service) Backend() presenter.Backend {
	return localBackend{svc: s}
}

type localBackend struct {
	svc *Service
}

func (b localBackend) Chat(ctx context.Context, prompt string) (*presenter.Reply, error) {
	reply, err := b.svc.Chat(ctx, prompt)
	if err != nil {
		return nil, asHTTPError(audit.KindChat, err)
	}
	return reply, nil
}

func (b localBackend) Upload(ctx context.Context, prompt string, file presenter.UploadedFile) (*presenter.Reply, error) {
	reply, err := b.svc.Upload(ctx, prompt, fileName(file), bytes.NewReader(file.Data))
	if err != nil {
		return nil, asHTTPError(audit.KindUpload, err)
	}
	return reply, nil
}

func asHTTPError(kind audit.Kind, err error) error {
	status, msg := httpStatus(kind, err)
	return &presenter.HTTPError{Status: status, Message: msg}
}

// fileName returns the client name of file, or one derived from its MIME
// type when the client sent none.
func fileName(file presenter.UploadedFile) string {
	if file.Name != "" {
		return file.Name
	}
	ext, ok := imageExts[file.MIMEType]
	if !ok {
		ext = ".jpg"
	}
	return "image" + ext
}

var imageExts = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/heif": ".heif",
}
