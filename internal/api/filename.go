package api

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mediayear/backend/internal/models"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces a client supplied name to a flat ASCII file name.
// Path separators become word breaks, whitespace runs become "_", any other character
// outside [A-Za-z0-9_.-] is dropped and leading or trailing "." and "_" are trimmed.
// The result may be empty.
func SecureFilename(name string) string {
	name = strings.NewReplacer("/", " ", `\`, " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// AllowedFile reports whether name has one of the allowed extensions.
func AllowedFile(name string, allowed []string) bool {
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return false
	}
	ext := strings.ToLower(name[dot+1:])
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

var imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}

// mediaTypeOf classifies an upload by its declared content type, falling back to the
// file extension when the client sent neither image/* nor video/*.
func mediaTypeOf(contentType, filename string) models.MediaType {
	switch {
	case strings.HasPrefix(contentType, "image/"), strings.HasPrefix(contentType, "video/"):
		return models.MediaTypeFromContentType(contentType)
	case imageExtensions[strings.ToLower(filepath.Ext(filename))]:
		return models.MediaTypeImage
	default:
		return models.MediaTypeVideo
	}
}
