package ai

import (
	"fmt"
	"strings"
)

const generateSystemPrompt = "You are a helpful assistant for a restaurant point-of-sale system. Answer concisely."

const modifySystemPrompt = `You edit restaurant menu items. Apply the user's instructions to the product and ` +
	`reply with a JSON object {"name": string, "description": string, "price": number}. ` +
	`Keep fields the instructions do not mention unchanged. Prices are in USD with two decimals.`

func modifyUserPrompt(p ProductDraft, instructions string) string {
	return fmt.Sprintf("Product:\nname: %s\ndescription: %s\nprice: %.2f\n\nInstructions: %s",
		p.Name, p.Description, p.Price, instructions)
}

func dishImagePrompt(d Dish) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Professional food photography of %s", d.Name)
	if d.Description != "" {
		fmt.Fprintf(&b, ": %s", d.Description)
	}
	if d.Category != "" {
		fmt.Fprintf(&b, ". Served as a %s dish", strings.ToLower(d.Category))
	}
	b.WriteString(". Appetizing restaurant plating, soft natural light, shallow depth of field, no text or watermarks.")
	return b.String()
}

func languageName(code string) string {
	switch code {
	case "he":
		return "Hebrew"
	case "en":
		return "English"
	default:
		return code
	}
}

func translateSystemPrompt(target string) string {
	return fmt.Sprintf("You are a professional translator for restaurant menus. Translate the user's text into %s. "+
		"Reply with the translation only, without quotes or explanations.", languageName(target))
}

const recognizeSystemPrompt = `You identify food products and ingredients in photos. Reply with a JSON object ` +
	`{"products": [{"name": string, "confidence": number between 0 and 1}]}. Use an empty array when nothing is recognisable.`

const recognizeUserPrompt = "Which food products or ingredients are visible in this image?"

const recipeSystemPrompt = `You are a chef suggesting dishes a restaurant can make. Reply with a JSON object ` +
	`{"recipes": [{"name": string, "description": string, "ingredients": [string], "instructions": [string]}]} ` +
	`with up to three recipes.`

func recipeUserPrompt(products []string) string {
	return "Suggest recipes that use these products: " + strings.Join(products, ", ")
}

const searchSystemPrompt = `You are a product search assistant. You help find products that match search queries ` +
	`based on their name and description. Always return a JSON object with a "product_keys" array containing matching product_key strings.`

func searchUserPrompt(query, products string) string {
	return fmt.Sprintf(`I have a list of products and I need to find ones that match the query: %q.

Here are the products:
%s

Return a JSON object with a "product_keys" array containing ONLY the product_key values of matching products,
for example {"product_keys": ["key1", "key2"]}. If nothing matches return {"product_keys": []}.
Return the product_key values exactly as they appear in the list.`, query, products)
}
