package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/internal/timestamp"
)

func TestMatchPartial(t *testing.T) {
	tests := []struct {
		text, pattern string
		want          bool
	}{
		{"Maria Silva", "Mar*", true},
		{"Maria Silva", "zzz", false},
		{"Maria Silva", "", true},
		{"", "", true},
		{"Maria Silva", "   ", true},
		{"Maria Silva", "silva", true},
		{"Maria Silva", "m*a s*", true},
		{"Maria Silva", "*Souza", false},
		{"+55 (11) 99999-0000", "(11)", true},
		{"+55 (11) 99999-0000", "+55*0000", true},
		{"", "ana", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchPartial(tt.text, tt.pattern), "%q ~ %q", tt.text, tt.pattern)
	}
}

func day(d, hour int) time.Time {
	return time.Date(2024, time.January, d, hour, 0, 0, 0, timestamp.Local())
}

func newConv(id int, created any, extra map[string]any) model.Conversation {
	raw := map[string]any{
		"id":         float64(id),
		"inbox_id":   float64(10),
		"status":     "open",
		"created_at": created,
		"meta": map[string]any{
			"sender": map[string]any{"name": "Maria Silva", "phone_number": "+5511999990000"},
		},
	}
	for k, v := range extra {
		raw[k] = v
	}
	return model.NewConversation(model.Record(raw))
}

func epoch(t time.Time) float64 {
	return float64(t.Unix())
}

func TestCollect_StrictIsSubsetOfRelaxed(t *testing.T) {
	convs := []model.Conversation{
		newConv(1, epoch(day(1, 10)), nil),
		newConv(2, epoch(day(20, 10)), nil),
		newConv(3, "not a date", nil),
		newConv(4, nil, nil),
		newConv(5, epoch(day(2, 8)), map[string]any{"inbox_id": float64(11)}),
		newConv(6, epoch(day(2, 9)), map[string]any{"status": "resolved"}),
		newConv(7, epoch(day(2, 9)), map[string]any{
			"meta": map[string]any{
				"sender":   map[string]any{"name": "João", "phone_number": "+5521888880000"},
				"assignee": map[string]any{"id": float64(9), "name": "Ana"},
			},
		}),
	}

	filters := map[string]Filter{
		"defaults": NewFilter(day(1, 0), day(3, 0)),
		"inbox": func() Filter {
			f := NewFilter(day(1, 0), day(3, 0))
			f.InboxIDs = []int64{10}
			return f
		}(),
		"status": func() Filter {
			f := NewFilter(day(1, 0), day(3, 0))
			f.Status = "open"
			return f
		}(),
		"assigned": func() Filter {
			f := NewFilter(day(1, 0), day(3, 0))
			f.Assigned = AssignedYes
			return f
		}(),
		"unassigned name": func() Filter {
			f := NewFilter(day(1, 0), day(3, 0))
			f.Assigned = AssignedNo
			f.ContactName = "mar*"
			return f
		}(),
	}

	for name, f := range filters {
		t.Run(name, func(t *testing.T) {
			_, strict := Collect(convs, f, nil, true)
			_, relaxed := Collect(convs, f, nil, false)
			relaxedSet := make(map[int64]bool)
			for _, id := range relaxed {
				relaxedSet[id] = true
			}
			for _, id := range strict {
				assert.True(t, relaxedSet[id], "strict id %d missing from relaxed pass", id)
			}
		})
	}
}

func TestCollect_SkipsRepeatedConversations(t *testing.T) {
	c := newConv(7, epoch(day(1, 9)), nil)
	f := NewFilter(day(1, 0), day(1, 0))

	for _, enforce := range []bool{true, false} {
		rows, ids := Collect([]model.Conversation{c, c}, f, nil, enforce)
		assert.Len(t, rows, 1)
		assert.Equal(t, []int64{7}, ids)
	}
}

func TestCollect_UnparseableCreatedAt(t *testing.T) {
	convs := []model.Conversation{newConv(3, "not a date", nil)}
	f := NewFilter(day(1, 0), day(3, 0))

	rows, ids := Collect(convs, f, nil, true)
	assert.Empty(t, rows)
	assert.Empty(t, ids)

	rows, ids = Collect(convs, f, nil, false)
	require.Len(t, rows, 1)
	assert.Equal(t, []int64{3}, ids)
}

func TestCollect_Predicates(t *testing.T) {
	base := NewFilter(day(1, 0), day(3, 0))
	convs := []model.Conversation{
		newConv(1, epoch(day(1, 10)), map[string]any{"team_id": float64(5)}),
		newConv(2, epoch(day(2, 10)), map[string]any{
			"inbox_id": float64(11),
			"meta": map[string]any{
				"sender":   map[string]any{"name": "Pedro", "phone_number": "+5531777770000"},
				"assignee": map[string]any{"id": float64(9), "name": "Ana"},
			},
		}),
		newConv(3, epoch(day(5, 10)), nil),
	}
	names := map[int64]string{10: "WhatsApp"}

	ids := func(f Filter) []int64 {
		_, got := Collect(convs, f, names, true)
		return got
	}

	assert.Equal(t, []int64{1, 2}, ids(base))

	f := base
	f.InboxIDs = []int64{11}
	assert.Equal(t, []int64{2}, ids(f))

	f = base
	f.InboxIDs = []int64{}
	assert.Equal(t, []int64{1, 2}, ids(f), "empty inbox set must not restrict")

	f = base
	f.ConversationID = " 2 "
	assert.Equal(t, []int64{2}, ids(f))

	f = base
	f.ContactNumber = "3177"
	assert.Equal(t, []int64{2}, ids(f))

	f = base
	f.AgentID = "9"
	assert.Equal(t, []int64{2}, ids(f))

	f = base
	f.Assigned = AssignedNo
	assert.Equal(t, []int64{1}, ids(f))

	f = base
	f.TeamID = "5"
	assert.Equal(t, []int64{1}, ids(f))

	f = base
	f.Status = "resolved"
	assert.Empty(t, ids(f))

	rows, _ := Collect(convs, base, names, true)
	assert.Equal(t, "WhatsApp", rows[0].InboxName)
	assert.Equal(t, "11", rows[1].InboxName)
}

func TestConversationRow_Fields(t *testing.T) {
	created := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)
	c := newConv(1, epoch(created), map[string]any{"labels": []any{"vip"}})
	row := ConversationRow{Conversation: c, InboxName: "WhatsApp"}

	fields := row.Fields()
	assert.Equal(t, "01/01/2024 10:00:00", fields["created_at"])
	assert.Equal(t, `["vip"]`, fields["labels"])
	assert.Equal(t, int64(1), fields["conversation_id"])
	assert.Equal(t, "Maria Silva", fields["contact_name"])
	assert.Equal(t, "WhatsApp", fields["inbox_name"])

	cols := ConversationColumns([]ConversationRow{row})
	assert.Equal(t, "conversation_id", cols[0])
	assert.Contains(t, cols, "labels")
}

func TestFilter_Validate(t *testing.T) {
	f := NewFilter(day(3, 0), day(1, 0))
	assert.ErrorIs(t, f.Validate(), ErrInvalidPeriod)
	assert.NoError(t, NewFilter(day(1, 0), day(1, 0)).Validate())
}
