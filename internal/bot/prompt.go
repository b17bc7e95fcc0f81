// Package bot is the webhook-driven auto-responder: it screens helpdesk
// webhook deliveries, queues reply jobs outside business hours and answers
// customers through the configured LLM.
package bot

import (
	"fmt"
	"strings"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
)

// DefaultSystemPrompt is used when no profile, stored prompt or prompt
// blocks are configured.
const DefaultSystemPrompt = "Você é o Galo Bot, assistente do atendimento da empresa. " +
	"Responda em português do Brasil, de forma cordial, direta e útil. " +
	"Peça educadamente para reescrever se a mensagem estiver inaudível ou ambígua " +
	"e acione um humano quando encontrar pedidos fora do escopo de suporte padrão."

// BuildPromptFromBlocks renders the guided prompt sections in a fixed order.
// Every section title is kept even when its content is empty.
func BuildPromptFromBlocks(b model.PromptBlocks) string {
	sections := []struct{ title, content string }{
		{"VOCÊ É...", b.Identity},
		{"PERSONALIDADE", b.Style},
		{"ESCOPO E FONTES", b.Scope},
		{"SAUDAÇÃO INICIAL", b.Greeting},
		{"REGRAS DE INTERAÇÃO", b.Rules},
		{"HANDOFF", b.HandoffPhrase},
		{"DESPEDIDA", b.Goodbye},
	}
	parts := make([]string, len(sections))
	for i, s := range sections {
		parts[i] = strings.TrimSpace(s.title + "\n" + s.content)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

func blocksEmpty(b model.PromptBlocks) bool {
	return strings.TrimSpace(b.Identity+b.Style+b.Scope+b.Greeting+b.Rules+b.HandoffPhrase+b.Goodbye) == ""
}

// AudioNotice asks the customer to type instead of sending audio.
func AudioNotice(firstName string) string {
	return fmt.Sprintf("Olá, %s, ainda não tenho a capacidade de audição. "+
		"Só sei ler mensagens por enquanto. "+
		"Poderia, por gentileza, enviar sua mensagem por texto?", firstName)
}

// ModerationNotice is sent instead of a reply when the message is flagged.
func ModerationNotice(firstName string) string {
	return fmt.Sprintf("Olá, %s. Detectei conteúdo sensível na mensagem. "+
		"Por favor, reformule ou aguarde para falar com um humano.", firstName)
}

func customerTurn(firstName, message string) string {
	if message == "" {
		message = "Mensagem sem conteúdo."
	}
	return fmt.Sprintf("Nome do cliente: %s\nMensagem do cliente: %s", firstName, message)
}
