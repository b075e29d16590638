package hub

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chathub/internal/chat"
	"chathub/internal/utils"
)

// Transcript is the exported form of one chat.
type Transcript struct {
	UUID       string         `json:"uuid"`
	Name       string         `json:"name"`
	BranchName string         `json:"branchName,omitempty"`
	SavedAt    time.Time      `json:"savedAt"`
	Messages   []chat.Message `json:"messages"`
}

// SaveTranscript writes a chat snapshot as JSON under dir/transcripts and
// returns the file path.
func SaveTranscript(dir string, snapshot ChatSnapshot) (string, error) {
	transcriptDir := filepath.Join(dir, "transcripts")
	if err := os.MkdirAll(transcriptDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create transcript directory: %w", err)
	}

	transcript := Transcript{
		UUID:       snapshot.UUID.String(),
		Name:       snapshot.Name,
		BranchName: snapshot.BranchName,
		SavedAt:    time.Now().UTC(),
		Messages:   snapshot.Messages,
	}
	data, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal transcript: %w", err)
	}

	path := filepath.Join(transcriptDir, snapshot.UUID.String()+".json")
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}
	return path, nil
}
