package tutor

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/tier"
	"github.com/trezcool/darasa/core/user"
)

const (
	maxSources     = 5
	searchPageSize = 5
)

var (
	ErrUltraRequired = errors.New(tier.RequiredMessage(tier.Ultra))
	ErrBusy          = errors.New("the tutor is busy, please try again in a moment")
	ErrUnavailable   = errors.New("the tutor is unavailable right now")
	errNoQuestion    = "a message from the user is required"
)

const systemPrompt = `You are the AI tutor of an online learning platform.
Help students understand the course material. Be concise, friendly and accurate.
Base your answers on the course content provided below when it is relevant, and point the student
to the lessons you used. If the content does not cover the question, say so and answer from general knowledge.`

// Backend is the hosted backend's AI endpoints.
type Backend interface {
	Chat(ctx context.Context, token string, messages []Message) (Answer, error)
	SearchAndAnswer(ctx context.Context, token, query string) (Answer, error)
}

// Model is a language model the tutor talks to directly.
type Model interface {
	Reply(ctx context.Context, system string, history []Message) (string, error)
	Answer(ctx context.Context, system, question string) (Answer, error)
}

// Searcher finds course content relevant to a question.
type Searcher interface {
	Search(ctx context.Context, q course.SearchQuery) (course.SearchSummary, error)
}

type Service struct {
	backend  Backend
	model    Model
	searcher Searcher
	validate *validator.Validate
	logger   core.Logger
}

// NewService returns a tutor backed by the hosted AI endpoints, or by model when it is not nil.
func NewService(backend Backend, model Model, searcher Searcher, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{
		backend:  backend,
		model:    model,
		searcher: searcher,
		validate: validate,
		logger:   logger,
	}
}

func (svc *Service) Chat(ctx context.Context, usr user.User, token string, cr ChatRequest) (Reply, error) {
	if !tier.HasAccess(usr.Tier, tier.Ultra) {
		return Reply{}, ErrUltraRequired
	}
	if err := cr.Validate(svc.validate); err != nil {
		return Reply{}, err
	}

	if svc.model == nil {
		ans, err := svc.backend.Chat(ctx, token, cr.Messages)
		if err != nil {
			return Reply{}, errors.Wrap(err, "chatting with tutor")
		}
		return replyFrom(ans), nil
	}

	question := cr.LastUserMessage()
	if question == "" {
		return Reply{}, core.NewFieldError("messages", errNoQuestion)
	}

	summary := svc.search(ctx, usr, question)
	content, err := svc.model.Reply(ctx, promptWith(summary), cr.Messages)
	if err != nil {
		return Reply{}, svc.modelError(err, "chatting with tutor", usr)
	}
	return replyFrom(Answer{Message: core.Text(content), Sources: sourcesOf(summary)}), nil
}

func (svc *Service) SearchAndAnswer(ctx context.Context, usr user.User, token string, sr SearchRequest) (Reply, error) {
	if !tier.HasAccess(usr.Tier, tier.Ultra) {
		return Reply{}, ErrUltraRequired
	}
	if err := sr.Validate(svc.validate); err != nil {
		return Reply{}, err
	}

	if svc.model == nil {
		ans, err := svc.backend.SearchAndAnswer(ctx, token, sr.Query)
		if err != nil {
			return Reply{}, errors.Wrap(err, "answering question")
		}
		return replyFrom(ans), nil
	}

	summary := svc.search(ctx, usr, sr.Query)
	ans, err := svc.model.Answer(ctx, promptWith(summary), sr.Query)
	if err != nil {
		return Reply{}, svc.modelError(err, "answering question", usr)
	}
	if len(ans.Sources) == 0 {
		ans.Sources = sourcesOf(summary)
	}
	return replyFrom(ans), nil
}

// modelError hides model failures matching ErrBusy or ErrUnavailable behind that error, after logging them.
func (svc *Service) modelError(err error, msg string, usr user.User) error {
	for _, sentinel := range []error{ErrBusy, ErrUnavailable} {
		if errors.Is(err, sentinel) {
			if svc.logger != nil {
				svc.logger.Error("tutor: "+msg, err, usr)
			}
			return sentinel
		}
	}
	return errors.Wrap(err, msg)
}

// search looks up course content for question. Search is best effort: the tutor answers without context on failure.
func (svc *Service) search(ctx context.Context, usr user.User, question string) course.SearchSummary {
	if svc.searcher == nil {
		return course.SearchSummary{}
	}
	q := course.SearchQuery{Query: question, PerPage: searchPageSize}
	if r := []rune(q.Query); len(r) > 200 {
		q.Query = string(r[:200])
	}
	summary, err := svc.searcher.Search(ctx, q)
	if err != nil {
		if svc.logger != nil {
			svc.logger.Warn("tutor: course search failed", err, usr)
		}
		return course.SearchSummary{}
	}
	return summary
}

func promptWith(summary course.SearchSummary) string {
	if !summary.Found {
		return systemPrompt
	}
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nRelevant course content:\n")
	b.WriteString(summary.Context())
	return b.String()
}

// sourcesOf lists the matched lessons, up to maxSources.
func sourcesOf(summary course.SearchSummary) []Source {
	sources := []Source{}
	for _, c := range summary.Courses {
		for _, m := range c.Modules {
			for _, l := range m.Lessons {
				if len(sources) == maxSources {
					return sources
				}
				sources = append(sources, Source{Course: string(c.Title), Lesson: string(l.Title), URL: l.URL})
			}
		}
	}
	return sources
}
