package message

// NormalizeLimit applies the default page size and rejects out-of-range limits.
func NormalizeLimit(limit int) (int, error) {
	if limit == 0 {
		return DefaultLimit, nil
	}
	if limit < 1 || limit > MaxLimit {
		return 0, ErrInvalidLimit
	}
	return limit, nil
}

// AssembleAscending turns pages fetched newest-first into one oldest-first sequence.
// Items are reversed within each page and the page order is reversed too.
func AssembleAscending(pages []Page) []MessageView {
	total := 0
	for _, p := range pages {
		total += len(p.Items)
	}

	out := make([]MessageView, 0, total)
	for i := len(pages) - 1; i >= 0; i-- {
		items := pages[i].Items
		for j := len(items) - 1; j >= 0; j-- {
			out = append(out, items[j])
		}
	}
	return out
}
