package service

import (
	"fmt"
	"strings"
)

const imageOnlyFallback = "Analyze this image"

// SpendViewPromptBuilder arma la instruccion que se envia al modelo junto con la entrada del usuario.
type SpendViewPromptBuilder struct{}

// BuildPrompt embebe la entrada (transcripcion + texto) en la instruccion de SpendView.
// Si no hay texto (solo imagen) usa la instruccion de fallback.
func (SpendViewPromptBuilder) BuildPrompt(userInput string, hasImage bool) string {
	input := strings.TrimSpace(userInput)
	if input == "" {
		input = imageOnlyFallback
	}
	// Las comillas dobles cerrarian el bloque citado.
	input = strings.ReplaceAll(input, `"`, `'`)

	var sb strings.Builder
	sb.WriteString("You are SpendView, a smart, multilingual voice assistant built to help users understand and manage their offline spending in a clear, structured and accessible way.\n\n")
	sb.WriteString("The user just said or submitted:\n")
	sb.WriteString(fmt.Sprintf("\"%s\"\n\n", input))

	sb.WriteString("Your core mission:\n")
	sb.WriteString("Process offline receipts, whether spoken, typed or photographed, and convert them into clean financial insights. ")
	sb.WriteString("Always extract relevant data like items, quantities, amounts, GST and totals in a structured manner, even if the input is unstructured or partial.\n\n")

	sb.WriteString("Rules:\n")
	sb.WriteString("- Reply in the same language the user used.\n")
	sb.WriteString("- List each item as: item - quantity - unit price - amount.\n")
	sb.WriteString("- Show subtotal, taxes (GST/VAT) and grand total on separate lines when present.\n")
	sb.WriteString("- If a value is unreadable or missing, say so instead of guessing.\n")
	sb.WriteString("- If the input is a question about spending, answer it directly and briefly.\n")
	sb.WriteString("- If the input has nothing to do with spending, answer helpfully in two or three sentences.\n")
	if hasImage {
		sb.WriteString("- An image is attached. Read the receipt or bill in it; if it is not a receipt, describe what it shows.\n")
	}
	return sb.String()
}
