package domain

import "strings"

var (
	imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
	videoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm"}
)

// MediaKind reports "image", "video" or "" for a media URL based on its
// extension. URL-level inspection only; byte-level validation belongs to
// the upload pipeline, not the publisher.
func MediaKind(mediaURL string) string {
	lower := strings.ToLower(mediaURL)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return "image"
		}
	}
	for _, ext := range videoExtensions {
		if strings.HasSuffix(lower, ext) {
			return "video"
		}
	}
	return ""
}
