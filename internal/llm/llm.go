package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kevinmichaelchen/profile-lens/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

// maxPromptRepos bounds how many repositories are described in the prompt.
const maxPromptRepos = 10

type Client struct {
	client *openai.Client
	model  string
}

func NewClient(baseURL, apiKey, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

const systemPrompt = `You are a friendly technical writer. Given a GitHub profile and its most starred repositories, write ONE short paragraph (3-4 sentences) describing who this developer or organization appears to be, what they build, and which technologies they favor.

Write plain text only. No markdown, no lists, no headings.`

// GenerateProfileSummary asks the model for a short plain-text description of
// the profile. repos are expected to be sorted by stars already.
func (c *Client) GenerateProfileSummary(ctx context.Context, user models.User, repos []models.Repo) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(user, repos)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", classify(err, user.Login)
	}

	if len(resp.Choices) == 0 {
		return "", models.NewError(models.KindService,
			"The AI service returned no summary.", fmt.Errorf("no choices returned for %s", user.Login))
	}

	summary := stripCodeFences(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", models.NewError(models.KindService,
			"The AI service returned an empty summary.", fmt.Errorf("empty content for %s", user.Login))
	}
	return summary, nil
}

// BuildPrompt renders the profile and the top repositories as the user message.
func BuildPrompt(user models.User, repos []models.Repo) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Login: %s", user.Login))
	if user.Name != "" {
		parts = append(parts, fmt.Sprintf("Name: %s", user.Name))
	}
	if user.Bio != "" {
		parts = append(parts, fmt.Sprintf("Bio: %s", user.Bio))
	}
	parts = append(parts, fmt.Sprintf("Followers: %d, following: %d, public repositories: %d",
		user.Followers, user.Following, user.PublicRepos))

	if len(repos) == 0 {
		parts = append(parts, "Repositories: none")
		return strings.Join(parts, "\n")
	}

	n := min(len(repos), maxPromptRepos)
	lines := make([]string, 0, n)
	for _, r := range repos[:n] {
		line := fmt.Sprintf("- %s (★ %d", r.Name, r.Stars)
		if r.Language != "" {
			line += ", " + r.Language
		}
		line += ")"
		if r.Description != "" {
			line += ": " + r.Description
		}
		lines = append(lines, line)
	}
	parts = append(parts, fmt.Sprintf("Top repositories:\n%s", strings.Join(lines, "\n")))
	return strings.Join(parts, "\n")
}

func classify(err error, login string) error {
	if errors.Is(err, context.Canceled) {
		return models.NewError(models.KindNetwork, "The summary request was canceled.", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewError(models.KindNetwork, "The AI service did not answer in time.", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := fmt.Sprintf("The AI service could not summarize %q (status %d)", login, apiErr.HTTPStatusCode)
		if apiErr.Message != "" {
			msg += ": " + apiErr.Message
		}
		return models.NewError(models.KindService, msg+".", err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return models.NewError(models.KindService,
			fmt.Sprintf("The AI service could not summarize %q (status %d).", login, reqErr.HTTPStatusCode), err)
	}

	return models.NewError(models.KindNetwork, "Could not reach the AI service.", err)
}

// stripCodeFences removes markdown code fences that some models wrap around
// their answer even when asked for plain text.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i != -1 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		if i := strings.LastIndex(s, "```"); i != -1 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
