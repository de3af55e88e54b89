package vector

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/whizardlm/whizard-api/internal/models"
)

func TestEntryID_Deterministic(t *testing.T) {
	t.Parallel()

	convID := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	first := EntryID(convID, 0)
	second := EntryID(convID, 0)
	if first != second {
		t.Errorf("expected deterministic id, got %q and %q", first, second)
	}

	if EntryID(convID, 0) == EntryID(convID, 1) {
		t.Error("different sequence numbers must produce different ids")
	}

	otherConv := uuid.New()
	if EntryID(convID, 0) == EntryID(otherConv, 0) {
		t.Error("different conversations must produce different ids")
	}
}

func TestFilter_Scoped(t *testing.T) {
	t.Parallel()

	convID := uuid.New()
	projID := uuid.New()
	topic := "Photosynthesis"

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{
			name:   "empty filter is unscoped",
			filter: Filter{},
			want:   false,
		},
		{
			name:   "topic alone is still unscoped",
			filter: Filter{Topic: &topic},
			want:   false,
		},
		{
			name:   "conversation scope",
			filter: Filter{ConversationID: &convID},
			want:   true,
		},
		{
			name:   "project scope",
			filter: Filter{ProjectID: &projID},
			want:   true,
		},
		{
			name:   "project and topic",
			filter: Filter{ProjectID: &projID, Topic: &topic},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.filter.scoped(); got != tt.want {
				t.Errorf("scoped() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildFilter(t *testing.T) {
	t.Parallel()

	convID := uuid.New()
	projID := uuid.New()
	topic := "Cell Division"
	scope := models.NewScope("user-1")

	tests := []struct {
		name      string
		filter    Filter
		wantParts []string
		wantArgs  int
	}{
		{
			name:      "scope only",
			filter:    Filter{},
			wantParts: []string{"user_id = $1"},
			wantArgs:  1,
		},
		{
			name:      "conversation filter",
			filter:    Filter{ConversationID: &convID},
			wantParts: []string{"user_id = $1", "conversation_id = $2"},
			wantArgs:  2,
		},
		{
			name:      "project and topic filter",
			filter:    Filter{ProjectID: &projID, Topic: &topic},
			wantParts: []string{"user_id = $1", "project_id = $2", "topic = $3"},
			wantArgs:  3,
		},
		{
			name:      "all filters",
			filter:    Filter{ConversationID: &convID, ProjectID: &projID, Topic: &topic},
			wantParts: []string{"user_id = $1", "conversation_id = $2", "project_id = $3", "topic = $4"},
			wantArgs:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			where, args := buildFilter(scope, tt.filter)
			for _, part := range tt.wantParts {
				if !strings.Contains(where, part) {
					t.Errorf("clause %q missing from %q", part, where)
				}
			}
			if len(args) != tt.wantArgs {
				t.Errorf("expected %d args, got %d", tt.wantArgs, len(args))
			}
			if args[0] != "user-1" {
				t.Errorf("first arg must be the scope user, got %v", args[0])
			}
		})
	}
}
