package gemini

import (
	"fmt"
	"strings"

	"github.com/xenking/waffle-kart/internal/domain/catalog"
)

func curatePrompt(c *catalog.Catalog, mood string) string {
	var b strings.Builder
	b.WriteString("You are a specialized Waffle Sommelier for \"Waffle Mania\".\n")
	fmt.Fprintf(&b, "The user describes their mood or situation as: %q.\n\n", mood)

	b.WriteString("Available Bases (choose one ID):\n")
	for _, base := range c.ListBases() {
		fmt.Fprintf(&b, "- %s (%s)\n", base.ID, base.Name)
	}
	b.WriteString("\nAvailable Toppings (choose 1 to 4 IDs):\n")
	for _, t := range c.ListToppings() {
		fmt.Fprintf(&b, "- %s (%s)\n", t.ID, t.Name)
	}

	b.WriteString("\nBased on the mood, curate a waffle combination.\n")
	b.WriteString("\"reason\" must be a short, poetic, aesthetic description of why this fits the mood (max 30 words).\n")
	return b.String()
}

func describePrompt(baseName string, toppingNames []string) string {
	toppings := strings.Join(toppingNames, ", ")
	if toppings == "" {
		toppings = "nothing but love"
	}
	return fmt.Sprintf(`I am creating a custom waffle on a luxury website called "Waffle Mania".
The waffle has a %s base.
It is topped with: %s.

Write a short, 2-sentence hyper-aesthetic, mouth-watering description of this creation.
Focus on sensory details like texture, warmth, and premium ingredients.
Do not use hashtags. Keep it under 50 words.
`, baseName, toppings)
}
