package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iconidentify/scriptcast/internal/domain"
	"github.com/iconidentify/scriptcast/internal/repository"
	"github.com/iconidentify/scriptcast/pkg/openrouter"
)

// extractionPrompt instructs the model to emit exactly the two-field
// JSON shape, with the sentinel for anything missing.
const extractionPrompt = `Review the provided chat history between a user and a chatbot discussing script content. Your task is to:
1. Identify exactly two finalized scripts.
2. If either script is missing or the conversation lacks finalized content, respond with "No script found." for the missing script(s).

Response Format (JSON):
{
"script1": "The real script content here or 'No script found.'",
"script2": "The real script content here or 'No script found.'"
}

Rules:
Extract only the final agreed-upon versions of both scripts. Ignore drafts, edits, or rejected ideas.
If the chat history contains only one script, set the other value to "No script found.".
Ensure the scripts are copied verbatim without modifications.`

// ScriptService extracts finalized scripts from chat histories and
// manages the script stored on a session.
type ScriptService struct {
	sessions        repository.SessionRepository
	chat            openrouter.Client
	extractionModel string
	logger          *slog.Logger
}

// NewScriptService creates a new script service.
func NewScriptService(
	sessions repository.SessionRepository,
	chat openrouter.Client,
	extractionModel string,
	logger *slog.Logger,
) *ScriptService {
	return &ScriptService{
		sessions:        sessions,
		chat:            chat,
		extractionModel: extractionModel,
		logger:          logger,
	}
}

// ExtractAndStore asks the model for the two finalized scripts in the
// conversation and persists them on the session. If the session
// already has a script the call is a no-op: extraction happens at most
// once per session.
func (s *ScriptService) ExtractAndStore(ctx context.Context, sessionID domain.SessionID, ownerID string, conversation []openrouter.Message) error {
	if len(conversation) == 0 {
		return domain.ErrEmptyConversation
	}

	session, err := loadOwnedSession(ctx, s.sessions, sessionID, ownerID)
	if err != nil {
		return err
	}

	if session.HasScript() {
		s.logger.Info("script already exists, skipping extraction", "session_id", sessionID)
		return nil
	}

	// The 0th message becomes the extraction instruction; the rest of
	// the history rides along unchanged.
	conversation[0] = openrouter.Message{
		Role:    "system",
		Content: extractionPrompt,
	}

	reply, err := s.chat.Send(ctx, conversation, s.extractionModel)
	if err != nil {
		return fmt.Errorf("extraction call: %w", err)
	}

	script, err := parseScriptReply(reply)
	if err != nil {
		return err
	}

	if err := s.sessions.UpdateScript(ctx, sessionID, *script); err != nil {
		return fmt.Errorf("store script: %w", err)
	}

	s.logger.Info("script extracted", "session_id", sessionID)
	return nil
}

// parseScriptReply strips code-fence artifacts and decodes the strict
// two-field shape. Anything else is a parse error; no partial data is
// accepted.
func parseScriptReply(reply string) (*domain.Script, error) {
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var script domain.Script
	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&script); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrScriptParse, err)
	}
	if script.Script1 == "" && script.Script2 == "" {
		return nil, fmt.Errorf("%w: both scripts empty", domain.ErrScriptParse)
	}

	return &script, nil
}

// UpdateScript replaces the session's script after the ownership check.
func (s *ScriptService) UpdateScript(ctx context.Context, sessionID domain.SessionID, ownerID string, script domain.Script) error {
	if _, err := loadOwnedSession(ctx, s.sessions, sessionID, ownerID); err != nil {
		return err
	}
	return s.sessions.UpdateScript(ctx, sessionID, script)
}

// ScriptView is a session's script together with its smoothed
// publication status.
type ScriptView struct {
	Script   domain.Script
	VideoURL string
}

// GetScript returns the session's script and the publication status as
// it should be displayed right now.
func (s *ScriptService) GetScript(ctx context.Context, sessionID domain.SessionID, ownerID string) (*ScriptView, error) {
	session, err := loadOwnedSession(ctx, s.sessions, sessionID, ownerID)
	if err != nil {
		return nil, err
	}

	if !session.HasScript() {
		return nil, domain.ErrScriptNotFound
	}

	return &ScriptView{
		Script:   *session.Script,
		VideoURL: session.DisplayStatus(time.Now().UTC()),
	}, nil
}
