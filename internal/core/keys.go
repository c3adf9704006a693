package core

import (
	"path"
	"strconv"
	"strings"
	"time"
)

const fallbackBaseName = "image"

// sanitizeName keeps [A-Za-z0-9_-] plus any extra runes in keep and collapses
// every other run of characters into a single '-'.
func sanitizeName(name, keep string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range name {
		allowed := r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			strings.ContainsRune(keep, r)
		if !allowed {
			pendingDash = true
			continue
		}
		if pendingDash && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingDash = false
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), "-.")
}

// baseName is the part of a filename before its first dot, directories stripped
func baseName(fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	if sanitized := sanitizeName(name, ""); sanitized != "" {
		return sanitized
	}
	return fallbackBaseName
}

// convertedAssetKey returns "<unix-millis>-<base>.<format>"
func convertedAssetKey(now time.Time, fileName, format string) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + baseName(fileName) + "." + format
}

// originalAssetKey returns "<unix-millis>-original-<sanitized filename>"
func originalAssetKey(now time.Time, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	sanitized := sanitizeName(name, ".")
	if sanitized == "" {
		sanitized = fallbackBaseName
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-original-" + sanitized
}

// downloadFileName is the attachment name offered for an image
func downloadFileName(title, format string) string {
	name := sanitizeName(title, ".")
	if name == "" {
		name = fallbackBaseName
	}
	return name + "." + format
}
