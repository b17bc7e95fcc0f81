package analytics

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/capitalize-ai/supportbot-workspace/internal/timestamp"
)

// ContextLimits bound the message sample of an insights context.
type ContextLimits struct {
	MaxMessages int `json:"max_messages"`
	MaxChars    int `json:"max_chars"`
	// MaxContentChars truncates a single message; "..." is appended.
	MaxContentChars int `json:"max_content_chars"`
}

// DefaultContextLimits returns the limits used by the insights page.
func DefaultContextLimits() ContextLimits {
	return ContextLimits{MaxMessages: 160, MaxChars: 12000, MaxContentChars: 240}
}

func (l ContextLimits) withDefaults() ContextLimits {
	d := DefaultContextLimits()
	if l.MaxMessages <= 0 {
		l.MaxMessages = d.MaxMessages
	}
	if l.MaxChars <= 0 {
		l.MaxChars = d.MaxChars
	}
	if l.MaxContentChars <= 0 {
		l.MaxContentChars = d.MaxContentChars
	}
	return l
}

// InsightsContext is the built document plus the pieces the API echoes.
type InsightsContext struct {
	Summary     Summary  `json:"summary"`
	FilterLines []string `json:"filters"`
	Text        string   `json:"context"`
	Sampled     int      `json:"sampled_messages"`
	Omitted     int      `json:"omitted_messages"`
}

var plainText = bluemonday.StrictPolicy()

// StripHTML removes markup from helpdesk message content and decodes
// entities.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	return html.UnescapeString(plainText.Sanitize(s))
}

// FilterLines describes f the way it is shown to the insights model.
func FilterLines(f Filter, inboxNames map[int64]string, limits ContextLimits) []string {
	limits = limits.withDefaults()
	lines := []string{
		fmt.Sprintf("Período: %s a %s",
			f.Start.In(timestamp.Local()).Format(timestamp.DateLayout),
			f.End.In(timestamp.Local()).Format(timestamp.DateLayout)),
	}
	if f.ContactName != "" {
		lines = append(lines, "Nome do contato (parcial): "+f.ContactName)
	}
	if f.ContactNumber != "" {
		lines = append(lines, "Número do contato (parcial): "+f.ContactNumber)
	}
	if f.ConversationID != "" {
		lines = append(lines, "ID da conversa: "+f.ConversationID)
	}
	lines = append(lines,
		"Status da conversa: "+orAll(f.Status),
		"Conversa atribuída: "+orAll(string(f.Assigned)),
		"Tipo de conversa: "+string(f.Type()),
	)
	if f.messageStatusSet() == nil {
		lines = append(lines, "Status da mensagem: "+StatusAll)
	} else {
		lines = append(lines, "Status da mensagem: "+strings.Join(f.MessageStatuses, ", "))
	}
	if f.AgentID != "" {
		lines = append(lines, "Agente: "+f.AgentID)
	}
	if f.TeamID != "" {
		lines = append(lines, "Time: "+f.TeamID)
	}
	if len(f.InboxIDs) > 0 {
		names := make([]string, 0, len(f.InboxIDs))
		for _, id := range f.InboxIDs {
			names = append(names, InboxLabel(inboxNames, id))
		}
		sort.Strings(names)
		if len(names) > 5 {
			lines = append(lines, fmt.Sprintf("Caixas de entrada: %s (+%d)", strings.Join(names[:5], ", "), len(names)-5))
		} else {
			lines = append(lines, "Caixas de entrada: "+strings.Join(names, ", "))
		}
	} else {
		lines = append(lines, "Caixas de entrada: Todas")
	}
	lines = append(lines, fmt.Sprintf("Limites: %d mensagens, %d caracteres", limits.MaxMessages, limits.MaxChars))
	return lines
}

func orAll(s string) string {
	if s == "" {
		return StatusAll
	}
	return s
}

// BuildContext renders the filters, counters and a bounded sample of
// messages as plain text. The sample stops at MaxMessages lines or once
// MaxChars characters were written, whichever comes first.
func BuildContext(res *Result, f Filter, inboxNames map[int64]string, limits ContextLimits) InsightsContext {
	limits = limits.withDefaults()
	filterLines := FilterLines(f, inboxNames, limits)

	var b strings.Builder
	b.WriteString("Filtros aplicados\n")
	for _, l := range filterLines {
		b.WriteString("- " + l + "\n")
	}
	s := res.Summary
	b.WriteString("\nResumo\n")
	fmt.Fprintf(&b, "- Total de conversas: %d\n", s.TotalConversations)
	fmt.Fprintf(&b, "- Total de conversas privadas: %d\n", s.PrivateConversations)
	fmt.Fprintf(&b, "- Total de mensagens recebidas: %d\n", s.Received)
	fmt.Fprintf(&b, "- Total de mensagens enviadas: %d\n", s.Sent)
	fmt.Fprintf(&b, "- Total de mensagens privadas: %d\n", s.Private)
	fmt.Fprintf(&b, "- Total de mensagens: %d\n", s.TotalMessages)
	fmt.Fprintf(&b, "- Total de clientes únicos: %d\n", s.UniqueContacts)
	b.WriteString("\nMensagens (amostra):")

	count, chars := 0, 0
	for _, row := range res.Messages {
		if count >= limits.MaxMessages || chars >= limits.MaxChars {
			break
		}
		line := sampleLine(row, limits.MaxContentChars)
		b.WriteString("\n" + line)
		count++
		chars += utf8.RuneCountInString(line)
	}
	omitted := len(res.Messages) - count
	if omitted > 0 {
		fmt.Fprintf(&b, "\n... (%d mensagens omitidas)", omitted)
	}

	return InsightsContext{
		Summary:     s,
		FilterLines: filterLines,
		Text:        b.String(),
		Sampled:     count,
		Omitted:     omitted,
	}
}

func sampleLine(row MessageRow, maxContent int) string {
	content := strings.TrimSpace(strings.ReplaceAll(StripHTML(row.Content), "\n", " "))
	if utf8.RuneCountInString(content) > maxContent {
		content = string([]rune(content)[:maxContent]) + "..."
	}
	status := row.Status
	if status == "" {
		status = "-"
	}
	return fmt.Sprintf("- [%s] conv %s | %s | %s | %s",
		status,
		strconv.FormatInt(row.ConversationID, 10),
		row.Author,
		timestamp.Format(row.SentAt),
		content,
	)
}
