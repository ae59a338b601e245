// Package structuring turns an uploaded statement file into ordered page text.
package structuring

import (
	"context"
	"sort"
	"strings"
)

// Page is the text of one document page. PageNumber starts at 1.
type Page struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// Element is a block of text reported by a layout reader, tagged with its page.
type Element struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// Structurer reads a file from disk and returns its pages in ascending order.
type Structurer interface {
	Structure(ctx context.Context, path string) ([]Page, error)
}

// GroupPages merges elements by page number, joining texts with a blank line.
// Elements without a valid page number belong to page 1. Blank elements are dropped.
func GroupPages(elements []Element) []Page {
	byPage := make(map[int][]string)
	for _, el := range elements {
		if strings.TrimSpace(el.Text) == "" {
			continue
		}
		n := el.PageNumber
		if n < 1 {
			n = 1
		}
		byPage[n] = append(byPage[n], el.Text)
	}

	numbers := make([]int, 0, len(byPage))
	for n := range byPage {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	pages := make([]Page, 0, len(numbers))
	for _, n := range numbers {
		pages = append(pages, Page{PageNumber: n, Text: strings.Join(byPage[n], "\n\n")})
	}
	return pages
}
