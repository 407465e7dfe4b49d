// Package network assembles the referral tree from flat downline rows.
package network

import (
	"sort"
	"time"

	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

// Member is one row of the downline query. Depth is 0 for the root.
type Member struct {
	ID             string
	UplineID       *string
	FullName       string
	RankName       string
	PersonalVolume float64
	GroupVolume    float64
	TeamSize       int
	JoinedAt       time.Time
	Depth          int
}

// Node is a consultant in the rendered tree.
type Node struct {
	ID             string    `json:"id"`
	FullName       string    `json:"full_name"`
	Rank           string    `json:"rank"`
	PersonalVolume float64   `json:"personal_volume"`
	GroupVolume    float64   `json:"group_volume"`
	TeamSize       int       `json:"team_size"`
	JoinedAt       time.Time `json:"joined_at"`
	Depth          int       `json:"depth"`
	Children       []*Node   `json:"children"`
}

// Stats summarises a tree.
type Stats struct {
	TotalMembers  int            `json:"total_members"`
	DirectCount   int            `json:"direct_count"`
	MaxDepth      int            `json:"max_depth"`
	PerDepth      map[int]int    `json:"per_depth"`
	TotalPV       float64        `json:"total_pv"`
	RankBreakdown map[string]int `json:"rank_breakdown"`
}

// Tree is the network response: the root node plus its statistics.
type Tree struct {
	Root  *Node `json:"root"`
	Stats Stats `json:"stats"`
}

// BuildTree links members under rootID. Rows whose upline is not reachable from the
// root are dropped, as is any row that would revisit a node. It returns nil when
// the root row is absent.
func BuildTree(rootID string, rows []Member) *Node {
	byParent := make(map[string][]Member, len(rows))
	var root *Node
	for _, m := range rows {
		if m.ID == rootID {
			root = newNode(m, 0)
			continue
		}
		if m.UplineID != nil {
			byParent[*m.UplineID] = append(byParent[*m.UplineID], m)
		}
	}
	if root == nil {
		return nil
	}

	seen := map[string]bool{rootID: true}
	var attach func(n *Node)
	attach = func(n *Node) {
		kids := byParent[n.ID]
		sort.SliceStable(kids, func(i, j int) bool { return kids[i].JoinedAt.Before(kids[j].JoinedAt) })
		for _, k := range kids {
			if seen[k.ID] {
				continue
			}
			seen[k.ID] = true
			child := newNode(k, n.Depth+1)
			n.Children = append(n.Children, child)
			attach(child)
		}
	}
	attach(root)
	return root
}

func newNode(m Member, depth int) *Node {
	return &Node{
		ID:             m.ID,
		FullName:       m.FullName,
		Rank:           m.RankName,
		PersonalVolume: m.PersonalVolume,
		GroupVolume:    m.GroupVolume,
		TeamSize:       m.TeamSize,
		JoinedAt:       m.JoinedAt,
		Depth:          depth,
		Children:       []*Node{},
	}
}

// ComputeStats walks the tree below root. The root itself is not counted as a member.
func ComputeStats(root *Node) Stats {
	s := Stats{PerDepth: map[int]int{}, RankBreakdown: map[string]int{}}
	if root == nil {
		return s
	}
	s.DirectCount = len(root.Children)

	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			s.TotalMembers++
			s.PerDepth[c.Depth]++
			s.TotalPV += c.PersonalVolume
			s.RankBreakdown[c.Rank]++
			if c.Depth > s.MaxDepth {
				s.MaxDepth = c.Depth
			}
			walk(c)
		}
	}
	walk(root)
	s.TotalPV = models.RoundMoney(s.TotalPV)
	return s
}

// ClampDepth bounds a requested depth to [1, max], using def when unset.
func ClampDepth(requested, def, max int) int {
	if requested <= 0 {
		return def
	}
	if requested > max {
		return max
	}
	return requested
}
