package display

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

func systemFonts(goos string) []string {
	switch goos {
	case "windows":
		return []string{"C:\\Windows\\Fonts\\arial.ttf", "C:\\Windows\\Fonts\\segoeui.ttf"}
	case "darwin":
		return []string{"/System/Library/Fonts/Helvetica.ttc", "/Library/Fonts/Arial.ttf"}
	}
	return []string{
		"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/TTF/DejaVuSans.ttf",
	}
}

// fontInDir returns the first .ttf/.ttc file of dir in name order.
func fontInDir(dir string) string {
	if dir == "" {
		return ""
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".ttf", ".ttc":
			if !entry.IsDir() {
				return filepath.Join(dir, entry.Name())
			}
		}
	}
	return ""
}

// DefaultFontPath prefers a font shipped in fontDir, then a system font.
// It returns "" when neither exists.
func DefaultFontPath(fontDir string) string {
	if p := fontInDir(fontDir); p != "" {
		return p
	}
	for _, p := range systemFonts(runtime.GOOS) {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
