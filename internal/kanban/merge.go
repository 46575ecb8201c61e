package kanban

// Separator joins the contents of merged cards.
const Separator = "\n---\n"

// Flatten expands a card into the leaf originals it is made of. A card that
// was never merged flattens to itself.
func Flatten(card Card) []Original {
	if !card.IsMerged() {
		return []Original{card.original()}
	}
	out := make([]Original, len(card.MergedFrom))
	copy(out, card.MergedFrom)
	return out
}

// Merge combines source into target. The result keeps the target's identity,
// author and timestamp; its history holds the leaves of target followed by
// the leaves of source.
func Merge(target, source Card) Card {
	merged := target.clone()
	merged.Content = target.Content + Separator + source.Content
	merged.MergedFrom = append(Flatten(target), Flatten(source)...)
	return merged
}

// split turns a merged card back into one card per history entry.
func split(card Card, newID func() string) []Card {
	cards := make([]Card, 0, len(card.MergedFrom))
	for _, orig := range card.MergedFrom {
		cards = append(cards, Card{
			ID:         newID(),
			Content:    orig.Content,
			AuthorID:   orig.AuthorID,
			AuthorName: orig.AuthorName,
			CreatedAt:  orig.CreatedAt,
		})
	}
	return cards
}
