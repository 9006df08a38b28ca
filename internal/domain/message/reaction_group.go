package message

// ReactionGroup сгруппированная реакция относительно вызывающего пользователя
type ReactionGroup struct {
	Emoji       string `json:"emoji"`
	Count       int    `json:"count"`
	ReactedByMe bool   `json:"reacted_by_me"`
}

// ReactionGroups упорядоченное отображение emoji -> группа.
// Позиция эмоджи фиксируется при первом появлении и не зависит от порядка обхода map.
type ReactionGroups struct {
	index map[string]int
	items []ReactionGroup
}

// NewReactionGroups строит упорядоченное отображение из готового представления
func NewReactionGroups(groups []ReactionGroup) *ReactionGroups {
	g := &ReactionGroups{
		index: make(map[string]int, len(groups)),
		items: make([]ReactionGroup, 0, len(groups)),
	}
	for _, group := range groups {
		if group.Count <= 0 {
			continue
		}
		if i, ok := g.index[group.Emoji]; ok {
			g.items[i].Count += group.Count
			g.items[i].ReactedByMe = g.items[i].ReactedByMe || group.ReactedByMe
			continue
		}
		g.append(group)
	}
	return g
}

// GroupReactions группирует строки реакций за один проход.
// Порядок групп совпадает с порядком первого появления эмоджи среди rows.
func GroupReactions(rows []Reaction, callerID string) *ReactionGroups {
	g := NewReactionGroups(nil)
	for _, row := range rows {
		mine := callerID != "" && row.userID == callerID
		if i, ok := g.index[row.emoji]; ok {
			g.items[i].Count++
			g.items[i].ReactedByMe = g.items[i].ReactedByMe || mine
			continue
		}
		g.append(ReactionGroup{Emoji: row.emoji, Count: 1, ReactedByMe: mine})
	}
	return g
}

// Bump применяет переключение реакции вызывающего пользователя к представлению.
// Повторяет эффект серверного toggle: снимает реакцию, если она уже стоит, иначе ставит.
// Группа с нулевым счетчиком удаляется.
func (g *ReactionGroups) Bump(emoji string) *ReactionGroups {
	i, ok := g.index[emoji]
	if !ok {
		g.append(ReactionGroup{Emoji: emoji, Count: 1, ReactedByMe: true})
		return g
	}

	if !g.items[i].ReactedByMe {
		g.items[i].Count++
		g.items[i].ReactedByMe = true
		return g
	}

	g.items[i].Count--
	g.items[i].ReactedByMe = false
	if g.items[i].Count <= 0 {
		g.remove(i)
	}
	return g
}

// Get возвращает группу по эмоджи
func (g *ReactionGroups) Get(emoji string) (ReactionGroup, bool) {
	i, ok := g.index[emoji]
	if !ok {
		return ReactionGroup{}, false
	}
	return g.items[i], true
}

// Len возвращает количество групп
func (g *ReactionGroups) Len() int {
	return len(g.items)
}

// Slice возвращает копию групп в порядке первого появления
func (g *ReactionGroups) Slice() []ReactionGroup {
	out := make([]ReactionGroup, len(g.items))
	copy(out, g.items)
	return out
}

func (g *ReactionGroups) append(group ReactionGroup) {
	g.index[group.Emoji] = len(g.items)
	g.items = append(g.items, group)
}

func (g *ReactionGroups) remove(i int) {
	delete(g.index, g.items[i].Emoji)
	g.items = append(g.items[:i], g.items[i+1:]...)
	for j := i; j < len(g.items); j++ {
		g.index[g.items[j].Emoji] = j
	}
}
