package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

const defaultLambdaTimeout = 10 * time.Second

// Lambda implements Translator by invoking per-language-pair translator
// Lambda functions.
type Lambda struct {
	client         *lambda.Client
	functionPrefix string
	timeout        time.Duration
}

type lambdaRequest struct {
	Texts      []string `json:"texts"`
	SourceLang string   `json:"sourceLang"`
	TargetLang string   `json:"targetLang"`
}

type lambdaResponse struct {
	Translations []string `json:"translations"`
	Confidence   float64  `json:"confidence,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// NewLambda loads the default AWS config and builds a Lambda-backed
// translator.
func NewLambda(ctx context.Context, cfg Config) (*Lambda, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultLambdaTimeout
	}
	return &Lambda{
		client:         lambda.NewFromConfig(awsCfg),
		functionPrefix: cfg.FunctionPrefix,
		timeout:        timeout,
	}, nil
}

// Translate invokes the "<prefix>-<source>-<target>" function with one text.
func (l *Lambda) Translate(ctx context.Context, text, sourceLang, targetLang string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	payload, err := json.Marshal(lambdaRequest{
		Texts:      []string{text},
		SourceLang: sourceLang,
		TargetLang: targetLang,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	functionName := fmt.Sprintf("%s-%s-%s", l.functionPrefix, sourceLang, targetLang)
	result, err := l.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: &functionName,
		Payload:      payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", functionName, err)
	}
	if result.FunctionError != nil {
		return nil, fmt.Errorf("lambda error: %s", *result.FunctionError)
	}

	var resp lambdaResponse
	if err := json.Unmarshal(result.Payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("translator error: %s", resp.Error)
	}
	if len(resp.Translations) == 0 {
		return nil, fmt.Errorf("translator returned no result for %s", targetLang)
	}

	return &Result{
		Text:       resp.Translations[0],
		Confidence: resp.Confidence,
	}, nil
}
