// Command upload-server is a small file-upload service built on partstream:
// form fields stay in memory, large uploads spill to disk and are moved into
// the upload directory without a second copy.
package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/lmittmann/tint"

	"github.com/go-partstream/partstream"
	httpform "github.com/go-partstream/partstream/http"
)

const uploadDir = "uploads"

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))

	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		logger.Error("failed to create upload dir", "error", err)
		os.Exit(1)
	}

	factory := partstream.NewItemFactory(
		partstream.WithSizeThreshold(256*partstream.KB),
	)

	r := mux.NewRouter()
	r.HandleFunc("/upload", uploadHandler(logger, factory)).Methods(http.MethodPost)
	r.PathPrefix("/files/").Handler(
		http.StripPrefix("/files/", http.FileServer(http.Dir(uploadDir))))

	logger.Info("listening", "addr", ":8080")
	if err := http.ListenAndServe(":8080", r); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func uploadHandler(logger *slog.Logger, factory *partstream.ItemFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		parser, err := httpform.NewParser(req,
			partstream.WithItemFactory(factory),
			partstream.WithMaxPartSize(64*partstream.MB),
			partstream.WithMaxRequestSize(256*partstream.MB),
		)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := parser.Parse(); err != nil {
			var limitErr partstream.SizeLimitExceededError
			if errors.As(err, &limitErr) {
				logger.Warn("upload rejected", "field", limitErr.FieldName, "limit", humanize.Bytes(uint64(limitErr.Limit)))
				http.Error(w, limitErr.Error(), http.StatusRequestEntityTooLarge)
				return
			}

			logger.Warn("bad multipart body", "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer func() {
			if err := parser.RemoveAll(); err != nil {
				logger.Error("failed to clean up items", "error", err)
			}
		}()

		for field, items := range parser.ItemMap() {
			for _, item := range items {
				if item.IsFormField() {
					logger.Debug("form field", "name", field, "value", item.String())
					continue
				}

				name, err := item.Name()
				if err != nil {
					logger.Warn("rejected file name", "field", field, "error", err)
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}

				dst := filepath.Join(uploadDir, filepath.Base(name))
				if err := item.Save(dst); err != nil {
					logger.Error("failed to store upload", "field", field, "error", err)
					http.Error(w, "failed to store upload", http.StatusInternalServerError)
					return
				}

				logger.Info("stored upload",
					"field", field,
					"file", dst,
					"size", humanize.Bytes(uint64(item.Size())),
					"spilled", !item.InMemory(),
				)
			}
		}

		w.WriteHeader(http.StatusCreated)
	}
}
