package app

import (
	"log/slog"
	"mime"
)

// Minimal containers lack /etc/mime.types, which leaves the stylesheet
// served as text/plain and blocked by nosniff.
var staticMimeTypes = map[string]string{
	".css": "text/css; charset=utf-8",
	".svg": "image/svg+xml",
	".ico": "image/x-icon",
}

func init() {
	for ext, typ := range staticMimeTypes {
		ensureMimeType(ext, typ)
	}
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		slog.Default().Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
	}
}
