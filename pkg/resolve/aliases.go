package resolve

import (
	"fmt"

	"github.com/OFFIS-RIT/bibliograph/pkg/alias"
	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
)

// aliasTables adds the pairs of every alias table. Strings named only in a
// table are inserted with the table's node type.
func (r *resolver) aliasTables() error {
	s := r.s
	tableLT := s.LinkTypes.Insert(LinkAliasTable, "", false)

	for _, nodeType := range sortedKeys(r.params.Aliases) {
		text := r.params.Aliases[nodeType]
		pairs, err := alias.ParseTable(text)
		if err != nil {
			return fmt.Errorf("alias table for %s: %w", nodeType, err)
		}
		nt := s.NodeTypes.Insert(nodeType, "", false)

		tableID := s.InternString(text, r.csvType)
		aid, err := s.AddAssertion(r.inp, r.inp, tableID, r.inp, tableLT)
		if err != nil {
			return err
		}
		if err := s.AddLinkTag(aid, s.InternString(nodeType, r.tagType)); err != nil {
			return err
		}

		for _, p := range pairs {
			key := s.InternString(p.Key, nt)
			value := s.InternString(p.Value, nt)
			if err := r.addAlias(key, value, tableID); err != nil {
				return err
			}
		}
		logger.Debug("[Resolve][Aliases] Applied alias table", "node_type", nodeType, "pairs", len(pairs))
	}
	return nil
}

// generatedAliases adds case folded aliases (unless case sensitive) and the
// output of the configured generators for their node types.
func (r *resolver) generatedAliases() error {
	s := r.s
	types := make(map[string]struct{})
	for nt := range r.params.Aliases {
		types[nt] = struct{}{}
	}
	for nt := range r.params.Generators {
		types[nt] = struct{}{}
	}

	for _, nodeType := range sortedKeys(types) {
		nt, err := s.NodeTypes.Lookup(nodeType)
		if err != nil {
			continue
		}
		ids, err := s.StringsByNodeType(common.Scalar(nodeType))
		if err != nil {
			return err
		}
		gen := r.params.Generators[nodeType]

		added := 0
		for _, id := range ids {
			text := s.Text(id)
			if !r.params.CaseSensitive {
				if folded := common.Casefold(text); folded != text {
					if err := r.addAlias(id, s.InternString(folded, nt), r.paramsID); err != nil {
						return err
					}
					added++
				}
			}
			if gen == nil {
				continue
			}
			if a, ok := gen(text); ok && a != text {
				if err := r.addAlias(id, s.InternString(a, nt), r.paramsID); err != nil {
					return err
				}
				added++
			}
		}
		logger.Debug("[Resolve][Aliases] Generated aliases", "node_type", nodeType, "aliases", added)
	}
	return nil
}
