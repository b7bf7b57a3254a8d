package engine

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRand() *rand.Rand {
	return newRandSeed(1)
}

func newRandSeed(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

// makeStimuli creates Faces/ and Houses/ under a temp dir with the given
// number of JPEG files plus a few files that must be ignored.
func makeStimuli(t *testing.T, faces, houses int) (faceDir, houseDir string) {
	t.Helper()
	root := t.TempDir()
	faceDir = filepath.Join(root, "Faces")
	houseDir = filepath.Join(root, "Houses")
	require.NoError(t, os.Mkdir(faceDir, 0o755))
	require.NoError(t, os.Mkdir(houseDir, 0o755))

	write := func(dir, name string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	exts := []string{".jpg", ".JPEG", ".jpeg", ".Jpg"}
	for i := 0; i < faces; i++ {
		write(faceDir, "face"+string(rune('a'+i))+exts[i%len(exts)])
	}
	for i := 0; i < houses; i++ {
		write(houseDir, "house"+string(rune('a'+i))+exts[i%len(exts)])
	}
	write(faceDir, "notes.txt")
	write(houseDir, "thumb.png")
	require.NoError(t, os.Mkdir(filepath.Join(faceDir, "sub.jpg"), 0o755))
	return faceDir, houseDir
}
