package workflow

import (
	"hash/fnv"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"shortsmith/internal/script"
)

// pickBackground chooses the record's background video and overlay GIF from
// the assets directory. The choice is deterministic for a given seed so a
// re-render of the same props file looks the same.
func (m *Manager) pickBackground(seed string) *script.Background {
	bg := &script.Background{
		Color:          m.cfg.Background.Color,
		MainColor:      m.cfg.Background.MainColor,
		SecondaryColor: m.cfg.Background.SecondaryColor,
		Seed:           seed,
	}
	dir := m.cfg.AssetsDir()
	videos, gifs := listAssets(dir)
	rng := seededRand(seed)
	if len(videos) > 0 {
		bg.Video = &script.MediaFile{Src: m.publicRelative(filepath.Join(dir, videos[rng.IntN(len(videos))]))}
	}
	if len(gifs) > 0 {
		bg.GIF = &script.MediaFile{Src: m.publicRelative(filepath.Join(dir, gifs[rng.IntN(len(gifs))]))}
	}
	return bg
}

func listAssets(dir string) (videos, gifs []string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".mp4", ".webm":
			videos = append(videos, entry.Name())
		case ".gif":
			gifs = append(gifs, entry.Name())
		}
	}
	sort.Strings(videos)
	sort.Strings(gifs)
	return videos, gifs
}

func seededRand(seed string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	sum := h.Sum64()
	return rand.New(rand.NewPCG(sum, sum>>1|1))
}

// publicRelative expresses path relative to the public directory when it
// lives underneath it, since the renderer resolves assets from there.
func (m *Manager) publicRelative(path string) string {
	rel, err := filepath.Rel(m.cfg.Paths.PublicDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
