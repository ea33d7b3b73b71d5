package llm

import (
	"context"

	"github.com/Morwran/yagpt"
	"github.com/pkg/errors"
)

type YandexClient struct {
	ya       yagpt.YaGPTFace
	iamToken string
}

// NewYandex exchanges the OAuth token for an IAM token, which is a network
// call; callers build this client once at startup.
func NewYandex(oauthToken, folderID string) (*YandexClient, error) {
	iam, err := yagpt.NewYaIam(oauthToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init yandex iam")
	}
	resp, err := iam.Create()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create iam token")
	}

	ya, err := yagpt.NewYagpt(folderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init yagpt")
	}

	return &YandexClient{
		ya:       ya,
		iamToken: resp.IamToken,
	}, nil
}

func (c *YandexClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	yaMsgs := make([]yagpt.Message, 0, len(messages))
	for _, m := range messages {
		yaMsgs = append(yaMsgs, yagpt.Message{Role: m.Role, Content: m.Content})
	}

	resp, err := c.ya.CompletionWithCtx(ctx, c.iamToken, yaMsgs)
	if err != nil {
		return Response{}, errors.Wrap(err, "yagpt completion failed")
	}
	if resp == nil || len(resp.Alternatives) == 0 || resp.Alternatives[0].Message.Content == "" {
		return Response{}, ErrEmptyResponse
	}
	out := Response{Content: resp.Alternatives[0].Message.Content, Model: yagpt.YaModelLite}
	out.PromptTokens = int(resp.Usage.InputTextTokens)
	out.CompletionTokens = int(resp.Usage.CompletionTokens)
	out.TotalTokens = int(resp.Usage.TotalTokens)
	return out, nil
}
