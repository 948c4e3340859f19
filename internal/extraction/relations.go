package extraction

import "github.com/agenthands/cobalt/internal/core/model"

// DeriveClaimRelations adds EXTENDS relation declarations between claims
// of the same document: when a later claim shares the same type and at
// least two mentioned entities with an earlier one, it is taken to
// refine that claim. Heuristic, so the declared edges stay skippable for
// the builder if a target disappears upstream.
func DeriveClaimRelations(claims []model.ClaimRecord) []model.ClaimRecord {
	byDoc := make(map[string][]int)
	for i, c := range claims {
		byDoc[c.DocID] = append(byDoc[c.DocID], i)
	}

	for _, idxs := range byDoc {
		for pos, i := range idxs {
			earlier := claims[i]
			earlierEntities := make(map[string]struct{}, len(earlier.MentionedEntityIDs))
			for _, id := range earlier.MentionedEntityIDs {
				earlierEntities[id] = struct{}{}
			}
			for _, j := range idxs[pos+1:] {
				later := &claims[j]
				if later.ClaimType != earlier.ClaimType {
					continue
				}
				overlap := 0
				for _, id := range later.MentionedEntityIDs {
					if _, ok := earlierEntities[id]; ok {
						overlap++
					}
				}
				if overlap >= 2 {
					later.Relations = append(later.Relations, model.RelationDecl{
						TargetID: earlier.ClaimID,
						Kind:     model.EdgeExtends,
					})
				}
			}
		}
	}
	return claims
}
