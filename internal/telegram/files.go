package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexey-pysenkov/tg-bot-reminder/internal/dialog"
)

var errNotAnAttachment = errors.New("message carries no attachment")

// stageIncoming downloads the document or photo carried by msg into the
// staging directory and returns its descriptor. The file is not persisted
// to the store until the owning flow commits.
func (r *Router) stageIncoming(msg *tgbotapi.Message) (dialog.Attachment, error) {
	var fileID, name string
	switch {
	case msg.Document != nil:
		fileID = msg.Document.FileID
		name = msg.Document.FileName
	case len(msg.Photo) > 0:
		// Photos come in several resolutions; take the largest.
		p := msg.Photo[len(msg.Photo)-1]
		fileID = p.FileID
		name = "photo_" + p.FileUniqueID + ".jpg"
	default:
		return dialog.Attachment{}, errNotAnAttachment
	}

	f, err := r.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return dialog.Attachment{}, fmt.Errorf("get file: %w", err)
	}

	local := filepath.Join(r.tmpDir, uuid.NewString()+filepath.Ext(name))
	if err := downloadTo(f.Link(r.bot.Token), local); err != nil {
		return dialog.Attachment{}, fmt.Errorf("download %s: %w", name, err)
	}
	return dialog.Attachment{Name: name, Path: local}, nil
}

func downloadTo(url, path string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// handleFileDownload sends a stored attachment back to the user under its
// original display name.
func (r *Router) handleFileDownload(ctx context.Context, chatID int64, fileID int64) {
	f, err := r.repo.GetFile(ctx, fileID)
	if err != nil {
		r.caseLookupFailed(chatID, err)
		return
	}

	src, err := os.Open(f.FileURL)
	if err != nil {
		r.log.Error("open attachment failed", zap.Error(err), zap.String("path", f.FileURL))
		r.sendText(chatID, storeFailText)
		return
	}
	defer src.Close()

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileReader{Name: f.FileName, Reader: src})
	if _, err := r.bot.Send(doc); err != nil {
		r.log.Error("send attachment failed", zap.Error(err), zap.Int64("file_id", fileID))
	}
}
