// Package builder turns per-document extraction output into a populated
// graph store under deterministic, idempotent construction rules. A
// malformed record aborts the whole build; only an unresolved relation
// target on a claim is recoverable (logged and skipped), since that
// reflects an upstream extraction error rather than a structural one.
package builder

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/agenthands/cobalt/internal/core/graph"
	"github.com/agenthands/cobalt/internal/core/model"
)

// Input is the complete extraction output for one build pass.
type Input struct {
	Documents   []model.DocumentRecord
	Entities    []model.EntityRecord
	Claims      []model.ClaimRecord
	Hypotheses  []model.HypothesisRecord
	EntityLinks model.EntityLinks
}

type Builder struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{log: log}
}

// Build runs the ordered construction stages: documents, entities (with
// symmetric LINKS_TO), claims (with MENTIONS), explicit hypotheses (with
// SUPPORTS), then the relation declarations carried on claims. Relations
// are applied last so the final graph does not depend on record order.
func (b *Builder) Build(in Input) (*graph.Store, error) {
	store := graph.NewStore()

	for _, doc := range in.Documents {
		if err := b.addDocument(store, doc); err != nil {
			return nil, err
		}
	}

	groupByEntityID := canonicalGroups(in.EntityLinks)
	for _, ent := range in.Entities {
		if err := b.addEntity(store, ent, groupByEntityID); err != nil {
			return nil, err
		}
	}
	if err := b.linkEntities(store, in.EntityLinks); err != nil {
		return nil, err
	}

	for _, claim := range in.Claims {
		if err := b.addClaim(store, claim); err != nil {
			return nil, err
		}
	}

	for _, hyp := range in.Hypotheses {
		if err := b.addHypothesis(store, hyp); err != nil {
			return nil, err
		}
	}

	// Relation targets may name claims, hypotheses or entities, so this
	// runs only after every node exists.
	for _, claim := range in.Claims {
		b.applyRelations(store, claim)
	}

	return store, nil
}

// canonicalGroups inverts the linker output into entity id -> group.
func canonicalGroups(links model.EntityLinks) map[string]string {
	groups := make(map[string]string)
	for canonical, ids := range links {
		for _, id := range ids {
			groups[id] = canonical
		}
	}
	return groups
}

func (b *Builder) addDocument(store *graph.Store, doc model.DocumentRecord) error {
	if doc.DocID == "" {
		return &graph.ValidationError{Subject: "document", Reason: "missing doc_id"}
	}
	if doc.Title == "" {
		return &graph.ValidationError{Subject: "document " + doc.DocID, Reason: "missing title"}
	}
	return store.AddNode(model.DocumentNode{
		ID:          graph.DocumentID(doc.DocID),
		Title:       doc.Title,
		Authors:     doc.Authors,
		OrderingKey: doc.OrderingKey,
	})
}

func (b *Builder) addEntity(store *graph.Store, ent model.EntityRecord, groups map[string]string) error {
	switch {
	case ent.EntityID == "":
		return &graph.ValidationError{Subject: "entity", Reason: "missing entity_id"}
	case ent.DocID == "":
		return &graph.ValidationError{Subject: "entity " + ent.EntityID, Reason: "missing doc_id"}
	case ent.Text == "":
		return &graph.ValidationError{Subject: "entity " + ent.EntityID, Reason: "missing text"}
	}

	group, ok := groups[ent.EntityID]
	if !ok {
		// Unlinked entities form a singleton group named by their text.
		group = strings.ToLower(strings.TrimSpace(ent.Text))
	}
	nodeID := graph.EntityID(ent.EntityID)
	if err := store.AddNode(model.EntityNode{
		ID:               nodeID,
		Text:             ent.Text,
		Type:             ent.Type,
		CanonicalGroupID: group,
		DocID:            ent.DocID,
	}); err != nil {
		return err
	}
	return store.AddEdge(graph.DocumentID(ent.DocID), nodeID, model.EdgeContains)
}

// linkEntities adds symmetric LINKS_TO edges between every pair of
// entities in the same canonical group. Link entries naming unknown
// entity ids are skipped: they refer to entities filtered out upstream.
func (b *Builder) linkEntities(store *graph.Store, links model.EntityLinks) error {
	canonicals := make([]string, 0, len(links))
	for canonical := range links {
		canonicals = append(canonicals, canonical)
	}
	sort.Strings(canonicals)

	for _, canonical := range canonicals {
		var nodeIDs []string
		for _, entityID := range links[canonical] {
			nodeID := graph.EntityID(entityID)
			if _, ok := store.Node(nodeID); ok {
				nodeIDs = append(nodeIDs, nodeID)
			} else {
				b.log.Warn("entity link names unknown entity, skipping",
					zap.String("canonical", canonical),
					zap.String("entity_id", entityID))
			}
		}
		sort.Strings(nodeIDs)
		for i, a := range nodeIDs {
			for _, z := range nodeIDs[i+1:] {
				if err := store.AddEdge(a, z, model.EdgeLinksTo); err != nil {
					return err
				}
				if err := store.AddEdge(z, a, model.EdgeLinksTo); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (b *Builder) addClaim(store *graph.Store, claim model.ClaimRecord) error {
	switch {
	case claim.ClaimID == "":
		return &graph.ValidationError{Subject: "claim", Reason: "missing claim_id"}
	case claim.DocID == "":
		return &graph.ValidationError{Subject: "claim " + claim.ClaimID, Reason: "missing doc_id"}
	case claim.Text == "":
		return &graph.ValidationError{Subject: "claim " + claim.ClaimID, Reason: "missing text"}
	case claim.ClaimType == "":
		return &graph.ValidationError{Subject: "claim " + claim.ClaimID, Reason: "missing claim_type"}
	case claim.Confidence < 0 || claim.Confidence > 1:
		return &graph.ValidationError{Subject: "claim " + claim.ClaimID,
			Reason: fmt.Sprintf("confidence %v outside [0,1]", claim.Confidence)}
	}

	nodeID := graph.ClaimID(claim.ClaimID)
	if err := store.AddNode(model.ClaimNode{
		ID:                 nodeID,
		Text:               claim.Text,
		ClaimType:          claim.ClaimType,
		Confidence:         claim.Confidence,
		DocID:              claim.DocID,
		MentionedEntityIDs: claim.MentionedEntityIDs,
	}); err != nil {
		return err
	}
	if err := store.AddEdge(graph.DocumentID(claim.DocID), nodeID, model.EdgeContains); err != nil {
		return err
	}

	for _, entityID := range claim.MentionedEntityIDs {
		entNodeID := graph.EntityID(entityID)
		if _, ok := store.Node(entNodeID); !ok {
			b.log.Warn("claim mentions unknown entity, skipping",
				zap.String("claim_id", claim.ClaimID),
				zap.String("entity_id", entityID))
			continue
		}
		if err := store.AddEdge(nodeID, entNodeID, model.EdgeMentions); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) addHypothesis(store *graph.Store, hyp model.HypothesisRecord) error {
	switch {
	case hyp.HypothesisID == "":
		return &graph.ValidationError{Subject: "hypothesis", Reason: "missing hypothesis_id"}
	case hyp.Text == "":
		return &graph.ValidationError{Subject: "hypothesis " + hyp.HypothesisID, Reason: "missing text"}
	case hyp.Confidence < 0 || hyp.Confidence > 1:
		return &graph.ValidationError{Subject: "hypothesis " + hyp.HypothesisID,
			Reason: fmt.Sprintf("confidence %v outside [0,1]", hyp.Confidence)}
	}

	supporting := make([]string, 0, len(hyp.SupportingClaimIDs))
	for _, claimID := range hyp.SupportingClaimIDs {
		supporting = append(supporting, graph.ClaimID(claimID))
	}
	sort.Strings(supporting)

	nodeID := graph.HypothesisID(hyp.HypothesisID)
	if err := store.AddNode(model.HypothesisNode{
		ID:                 nodeID,
		Text:               hyp.Text,
		Confidence:         hyp.Confidence,
		Source:             model.SourceExplicit,
		DocID:              hyp.DocID,
		SupportingClaimIDs: supporting,
	}); err != nil {
		return err
	}
	if hyp.DocID != "" {
		if err := store.AddEdge(graph.DocumentID(hyp.DocID), nodeID, model.EdgeContains); err != nil {
			return err
		}
	}
	for _, claimNodeID := range supporting {
		if err := store.AddSupport(claimNodeID, nodeID); err != nil {
			return err
		}
	}
	return nil
}

// applyRelations adds the relation edges declared on a claim. A target
// that resolves to no node is logged and skipped, never fatal.
func (b *Builder) applyRelations(store *graph.Store, claim model.ClaimRecord) {
	from := graph.ClaimID(claim.ClaimID)
	for _, rel := range claim.Relations {
		switch rel.Kind {
		case model.EdgeSupports, model.EdgeContradicts, model.EdgeExtends, model.EdgeBasedOn:
		default:
			b.log.Warn("relation declares non-relation edge kind, skipping",
				zap.String("claim_id", claim.ClaimID),
				zap.String("kind", string(rel.Kind)))
			continue
		}
		target, ok := resolveTarget(store, rel.TargetID)
		if !ok {
			b.log.Warn("relation target unresolved, skipping",
				zap.String("claim_id", claim.ClaimID),
				zap.String("target_id", rel.TargetID),
				zap.String("kind", string(rel.Kind)))
			continue
		}
		var err error
		if rel.Kind == model.EdgeSupports {
			// Keeps the hypothesis supporting-claim list in sync.
			err = store.AddSupport(from, target)
		} else {
			err = store.AddEdge(from, target, rel.Kind)
		}
		if err != nil {
			b.log.Warn("relation edge rejected, skipping",
				zap.String("claim_id", claim.ClaimID),
				zap.String("target_id", rel.TargetID),
				zap.String("kind", string(rel.Kind)),
				zap.Error(err))
		}
	}
}

// resolveTarget maps a relation target record id to a node id, trying the
// claim, hypothesis and entity namespaces, then the raw id.
func resolveTarget(store *graph.Store, targetID string) (string, bool) {
	for _, candidate := range []string{
		graph.ClaimID(targetID),
		graph.HypothesisID(targetID),
		graph.EntityID(targetID),
		targetID,
	} {
		if _, ok := store.Node(candidate); ok {
			return candidate, true
		}
	}
	return "", false
}
