// Package cleaner rewrites narratives in formal register with an LLM.
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/matiasinsaurralde/relatorio/internal/pkg/gemini"
	"github.com/matiasinsaurralde/relatorio/internal/pkg/openai"
	"github.com/matiasinsaurralde/relatorio/pkg/config"
	"github.com/matiasinsaurralde/relatorio/pkg/marker"
	"github.com/matiasinsaurralde/relatorio/pkg/types"
	"github.com/rs/zerolog"
)

const systemPrompt = `Você revisa relatórios policiais escritos em português.
Corrija ortografia, gramática e pontuação e ajuste o texto para o registro formal.
Não acrescente, remova ou altere fatos, nomes, datas, horários, placas ou números.
Mantenha a divisão em parágrafos.
Mantenha cada marcador no formato [FOTOn] exatamente como está e na mesma posição relativa.
Responda apenas com o texto revisado, sem comentários.`

var (
	// ErrMarkersChanged is returned when the rewritten text doesn't carry the same [FOTOn] markers:
	ErrMarkersChanged = errors.New("rewritten narrative changed the photo markers")
	errEmptyAnswer    = errors.New("empty answer")
)

// Cleaner rewrites a narrative:
type Cleaner interface {
	Clean(ctx context.Context, narrative string) (string, error)
}

// Completer is implemented by the OpenAI and Gemini clients:
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Nop returns the narrative untouched:
type Nop struct{}

func (Nop) Clean(_ context.Context, narrative string) (string, error) {
	return narrative, nil
}

// LLM cleans narratives through a Completer:
type LLM struct {
	completer Completer
	logger    zerolog.Logger
}

// NewLLM wraps completer:
func NewLLM(completer Completer, logger zerolog.Logger) *LLM {
	return &LLM{completer: completer, logger: logger}
}

// Clean sends the narrative to the LLM. The answer is rejected when it lost or gained markers.
func (l *LLM) Clean(ctx context.Context, narrative string) (string, error) {
	answer, err := l.completer.Complete(ctx, systemPrompt, narrative)
	if err != nil {
		return "", err
	}
	cleaned := stripFences(answer)
	if cleaned == "" {
		return "", errEmptyAnswer
	}
	before, after := marker.Markers(narrative), marker.Markers(cleaned)
	slices.Sort(before)
	slices.Sort(after)
	if !slices.Equal(before, after) {
		return "", fmt.Errorf("%w: %v -> %v", ErrMarkersChanged, before, after)
	}
	l.logger.Debug().Int("before", len(narrative)).Int("after", len(cleaned)).Msg("narrative cleaned")
	return cleaned, nil
}

// stripFences removes a surrounding ``` block, models add one now and then:
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the language tag line, e.g. ```text:
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// New returns the cleaner selected by the configuration:
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Cleaner, error) {
	switch cfg.CleanerConfig.Provider {
	case types.CleanerProviderOpenAI:
		return NewLLM(openai.New(cfg), logger), nil
	case types.CleanerProviderGemini:
		client, err := gemini.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewLLM(client, logger), nil
	case types.CleanerProviderNone, "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown cleaner provider %q", cfg.CleanerConfig.Provider)
	}
}
