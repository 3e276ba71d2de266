package character

import (
	"sort"

	"github.com/kasuganosora/scholarquest/model"
)

func sortByOrder(rows []model.SubjectProgress, order map[string]int) {
	sort.SliceStable(rows, func(i, j int) bool {
		oi, iok := order[rows[i].SubjectID]
		oj, jok := order[rows[j].SubjectID]
		if iok != jok {
			return iok
		}
		return oi < oj
	})
}
