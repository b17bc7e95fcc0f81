package analytics

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/capitalize-ai/supportbot-workspace/internal/chatwoot"
	"github.com/capitalize-ai/supportbot-workspace/internal/model"
)

func TestBuildContext_Layout(t *testing.T) {
	f := NewFilter(day(1, 0), day(7, 0))
	f.ContactName = "Mar*"
	f.MessageStatuses = []string{"read", "sent"}
	f.InboxIDs = []int64{10}

	res := &Result{
		Summary: Summary{TotalConversations: 2, Received: 3, Sent: 1, TotalMessages: 4, UniqueContacts: 2},
		Messages: []MessageRow{
			{ConversationID: 1, Author: LabelCustomer, Status: "read", Content: "<p>Olá <b>mundo</b> &amp; cia</p>\nlinha", SentAt: day(1, 9)},
		},
	}

	ctx := BuildContext(res, f, map[int64]string{10: "WhatsApp"}, ContextLimits{})
	want := strings.Join([]string{
		"Filtros aplicados",
		"- Período: 01/01/2024 a 07/01/2024",
		"- Nome do contato (parcial): Mar*",
		"- Status da conversa: Todos",
		"- Conversa atribuída: Todos",
		"- Tipo de conversa: Todos",
		"- Status da mensagem: read, sent",
		"- Caixas de entrada: WhatsApp",
		"- Limites: 160 mensagens, 12000 caracteres",
		"",
		"Resumo",
		"- Total de conversas: 2",
		"- Total de conversas privadas: 0",
		"- Total de mensagens recebidas: 3",
		"- Total de mensagens enviadas: 1",
		"- Total de mensagens privadas: 0",
		"- Total de mensagens: 4",
		"- Total de clientes únicos: 2",
		"",
		"Mensagens (amostra):",
		"- [read] conv 1 | Cliente | 01/01/2024 09:00:00 | Olá mundo & cia linha",
	}, "\n")
	assert.Equal(t, want, ctx.Text)
	assert.Equal(t, 1, ctx.Sampled)
	assert.Zero(t, ctx.Omitted)
}

func TestBuildContext_Limits(t *testing.T) {
	long := strings.Repeat("á", 300)
	var rows []MessageRow
	for i := 0; i < 10; i++ {
		rows = append(rows, MessageRow{ConversationID: int64(i), Author: LabelBot, Status: "sent", Content: long, SentAt: day(1, 9)})
	}
	res := &Result{Messages: rows}

	ctx := BuildContext(res, NewFilter(day(1, 0), day(1, 0)), nil, ContextLimits{MaxMessages: 4})
	assert.Equal(t, 4, ctx.Sampled)
	assert.Equal(t, 6, ctx.Omitted)
	assert.True(t, strings.HasSuffix(ctx.Text, "... (6 mensagens omitidas)"))
	assert.Contains(t, ctx.Text, strings.Repeat("á", 240)+"...")
	assert.NotContains(t, ctx.Text, strings.Repeat("á", 241))

	// Each line is ~290 characters, so a 500 budget stops after two lines.
	ctx = BuildContext(res, NewFilter(day(1, 0), day(1, 0)), nil, ContextLimits{MaxChars: 500})
	assert.Equal(t, 2, ctx.Sampled)
	assert.Equal(t, 8, ctx.Omitted)
}

func TestFilterLines_InboxPreview(t *testing.T) {
	f := NewFilter(day(1, 0), day(1, 0))
	f.InboxIDs = []int64{1, 2, 3, 4, 5, 6, 7}
	f.AgentID = "9"
	f.TeamID = "3"
	names := map[int64]string{1: "g", 2: "f", 3: "e", 4: "d", 5: "c", 6: "b", 7: "a"}

	lines := FilterLines(f, names, DefaultContextLimits())
	assert.Contains(t, lines, "Caixas de entrada: a, b, c, d, e (+2)")
	assert.Contains(t, lines, "Agente: 9")
	assert.Contains(t, lines, "Time: 3")
	assert.Contains(t, lines, "Status da mensagem: Todos")
}

func TestMessageTable_CSV(t *testing.T) {
	rows := []MessageRow{{
		ConversationID:        7,
		Author:                "Ana",
		ContactName:           "Maria",
		ContactPhone:          "+55",
		ConversationStartedAt: day(1, 8),
		InboxName:             "WhatsApp",
		FirstReplyDelay:       "00:05:00",
		Status:                "read",
		Content:               "oi, tudo bem?",
		SentAt:                day(1, 9),
	}}

	var buf bytes.Buffer
	require.NoError(t, MessageTable(rows).WriteCSV(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(MessageColumns, ","), lines[0])
	assert.Equal(t, `7,Ana,Maria,+55,01/01/2024 08:00:00,WhatsApp,00:05:00,read,"oi, tudo bem?",01/01/2024 09:00:00`, lines[1])
}

func TestTable_XLSX(t *testing.T) {
	table := RecordTable([]map[string]any{
		{"id": float64(1), "content": "olá"},
		{"id": float64(2)},
	}, []string{"id", "content"})

	var buf bytes.Buffer
	require.NoError(t, table.WriteXLSX(&buf, "Mensagens"))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Mensagens")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "content"}, rows[0])
	assert.Equal(t, []string{"1", "olá"}, rows[1])
	assert.Equal(t, "2", rows[2][0])
}

func TestConversationTable_SelectedColumns(t *testing.T) {
	rows, _ := Collect([]model.Conversation{newConv(5, epoch(day(1, 9)), nil)}, NewFilter(day(1, 0), day(1, 0)), nil, true)
	cols := SelectColumns(ConversationColumns(rows), []string{"status", "nope", "conversation_id"})
	table := ConversationTable(rows, cols)
	assert.Equal(t, []string{"status", "conversation_id"}, table.Columns)
	assert.Equal(t, [][]string{{"open", "5"}}, table.Rows)
}

func TestHourlyBreakdown(t *testing.T) {
	points := []chatwoot.ReportPoint{
		{Timestamp: day(1, 9).Unix(), Value: 3},
		{Timestamp: day(2, 9).Unix(), Value: 1},
		{Timestamp: day(2, 23).Unix(), Value: 4},
	}
	buckets := HourlyBreakdown(points, 2)
	require.Len(t, buckets, 25)
	assert.Equal(t, "09", buckets[9].Hour)
	assert.Equal(t, 4, buckets[9].Conversations)
	assert.InDelta(t, 50.0, buckets[9].Percent, 1e-9)
	assert.InDelta(t, 2.0, buckets[9].Average, 1e-9)
	assert.Equal(t, 4, buckets[23].Conversations)
	assert.Equal(t, "Total", buckets[24].Hour)
	assert.Equal(t, 8, buckets[24].Conversations)
}
