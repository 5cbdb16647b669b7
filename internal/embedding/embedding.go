package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/kevinmichaelchen/profile-lens/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

type Client struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewClient(baseURL, apiKey, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.EmbeddingModel(model),
	}
}

// Embed returns the vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}

// SnapshotText is what gets embedded for a stored lookup: who it is, what
// the summary says, and the languages they write.
func SnapshotText(s models.Snapshot) string {
	var b strings.Builder
	b.WriteString(s.Login)
	if s.Name != "" && s.Name != s.Login {
		fmt.Fprintf(&b, " (%s)", s.Name)
	}
	b.WriteString(": ")
	b.WriteString(s.Summary)
	if len(s.Languages) > 0 {
		langs := make([]string, len(s.Languages))
		for i, l := range s.Languages {
			langs[i] = l.Language
		}
		fmt.Fprintf(&b, " Languages: %s.", strings.Join(langs, ", "))
	}
	return b.String()
}
