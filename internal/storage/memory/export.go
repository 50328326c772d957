package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rorsim/gfxbridge/pkg/core"
)

// SessionExport is the root JSON structure
type SessionExport struct {
	Session    core.Session  `json:"session"`
	EndFrame   uint64        `json:"endFrame"`
	FrameCount int           `json:"frameCount"`
	Actors     []ActorExport `json:"actors"`
}

// ActorExport is one actor and its frames in recording order.
type ActorExport struct {
	ID        int           `json:"id"`
	Name      string        `json:"name"`
	Layout    core.Layout   `json:"layout"`
	SpawnTime time.Time     `json:"spawnTime"`
	Frames    []FrameExport `json:"frames"`
}

// FrameExport is one sampled snapshot.
type FrameExport struct {
	FrameNum uint64          `json:"frameNum"`
	Time     time.Time       `json:"time"`
	Snapshot *core.SimBuffer `json:"snapshot"`
}

// exportJSON writes the session data to a (gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(b.session.Name)
	if name == "" {
		name = "session"
	}
	timestamp := b.session.StartTime.Format("20060102_150405")

	filename := fmt.Sprintf("%s_%s.json", name, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() SessionExport {
	export := SessionExport{
		Session:    *b.session,
		FrameCount: b.frames,
		Actors:     make([]ActorExport, 0, len(b.actors)),
	}

	for _, rec := range b.sortedActors() {
		a := ActorExport{
			ID:        rec.Info.ID,
			Name:      rec.Info.Name,
			Layout:    rec.Info.Layout,
			SpawnTime: rec.Info.SpawnTime,
			Frames:    make([]FrameExport, 0, len(rec.Frames)),
		}
		for _, f := range rec.Frames {
			a.Frames = append(a.Frames, FrameExport{FrameNum: f.FrameNum, Time: f.Time, Snapshot: f.Snapshot})
			if f.FrameNum > export.EndFrame {
				export.EndFrame = f.FrameNum
			}
		}
		export.Actors = append(export.Actors, a)
	}
	return export
}

func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeGzipJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	if err := json.NewEncoder(gw).Encode(data); err != nil {
		gw.Close()
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return nil
}
