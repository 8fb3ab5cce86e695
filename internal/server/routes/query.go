package routes

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/bibliograph/internal/server/middleware"
	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/graph"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
	"github.com/OFFIS-RIT/bibliograph/pkg/textnet"

	"github.com/labstack/echo/v4"
)

type nodeResponse struct {
	ID       common.NodeID `json:"id"`
	NodeType string        `json:"node_type"`
	Name     string        `json:"name"`
	Abbr     string        `json:"abbr"`
	Strings  []string      `json:"strings"`
}

type edgeResponse struct {
	ID       common.EdgeID `json:"id"`
	LinkType string        `json:"link_type"`
	Target   common.NodeID `json:"target"`
	Ref      common.NodeID `json:"ref"`
	Tags     []string      `json:"tags,omitempty"`
}

type stringResponse struct {
	ID       common.StringID `json:"id"`
	Text     string          `json:"text"`
	NodeType string          `json:"node_type"`
	NodeID   common.NodeID   `json:"node_id"`
}

// selectorParam reads a comma separated query param into a selector. An
// absent param selects nothing.
func selectorParam(c echo.Context, name string) common.Selector {
	raw := c.QueryParam(name)
	if raw == "" {
		return common.Selector{}
	}
	values := make([]string, 0)
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 1 {
		return common.Scalar(values[0])
	}
	return common.Column(values...)
}

// loadResolved reads the compiled store named by :id. It writes the
// response itself when it returns ok == false.
func loadResolved(c echo.Context) (*textnet.ResolvedStore, bool, error) {
	info, ok, err := getStore(c)
	if !ok {
		return nil, false, err
	}
	if !info.Resolved {
		return nil, false, errorJSON(c, http.StatusConflict, "Store has not been compiled")
	}

	storage := c.(*middleware.AppContext).App.Storage
	r, err := graph.LoadResolved(c.Request().Context(), storage, info.ID)
	if err != nil {
		logger.Error("[Server][Query] Failed to load store", "store", info.ID, "err", err)
		return nil, false, errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	return r, true, nil
}

func lookupFailed(c echo.Context, err error) error {
	if errors.Is(err, common.ErrLookup) {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	return errorJSON(c, http.StatusInternalServerError, "Internal server error")
}

func toNode(r *textnet.ResolvedStore, n common.Node) nodeResponse {
	sids := r.StringsOfNode(n.ID)
	texts := make([]string, len(sids))
	for i, sid := range sids {
		texts[i] = r.Text(sid)
	}
	return nodeResponse{
		ID:       n.ID,
		NodeType: r.NodeTypes.Name(n.NodeTypeID),
		Name:     r.NodeName(n.ID, false),
		Abbr:     r.NodeName(n.ID, true),
		Strings:  texts,
	}
}

// GetNodesHandler lists the nodes of a compiled store, optionally limited to
// the node types given in ?node_type=a,b.
func GetNodesHandler(c echo.Context) error {
	r, ok, err := loadResolved(c)
	if !ok {
		return err
	}

	sel := selectorParam(c, "node_type")
	nodes := r.Nodes()
	if !sel.IsZero() {
		ids, err := r.NodesByType(sel)
		if err != nil {
			return lookupFailed(c, err)
		}
		nodes = make([]common.Node, 0, len(ids))
		for _, id := range ids {
			n, _ := r.Node(id)
			nodes = append(nodes, n)
		}
	}

	res := make([]nodeResponse, 0, len(nodes))
	for _, n := range nodes {
		res = append(res, toNode(r, n))
	}
	return c.JSON(http.StatusOK, res)
}

// GetNodeHandler returns one node with its outgoing edges.
func GetNodeHandler(c echo.Context) error {
	r, ok, err := loadResolved(c)
	if !ok {
		return err
	}

	id, err := strconv.ParseInt(c.Param("node_id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request params")
	}
	n, err := r.Node(common.NodeID(id))
	if err != nil {
		return errorJSON(c, http.StatusNotFound, "Node not found")
	}

	edges := make([]edgeResponse, 0)
	for _, e := range r.EdgesFrom(n.ID) {
		var tags []string
		for _, sid := range r.EdgeTagsOf(e.ID) {
			tags = append(tags, r.Text(sid))
		}
		edges = append(edges, edgeResponse{
			ID:       e.ID,
			LinkType: r.LinkTypes.Name(e.LinkTypeID),
			Target:   e.TgtNodeID,
			Ref:      e.RefNodeID,
			Tags:     tags,
		})
	}

	return c.JSON(http.StatusOK, struct {
		nodeResponse
		Edges []edgeResponse `json:"edges"`
	}{toNode(r, n), edges})
}

// GetStringsHandler lists the strings of a compiled store, optionally
// limited to ?node_type=a,b.
func GetStringsHandler(c echo.Context) error {
	r, ok, err := loadResolved(c)
	if !ok {
		return err
	}

	strs := r.Strings()
	if sel := selectorParam(c, "node_type"); !sel.IsZero() {
		ids, err := r.StringsByNodeType(sel)
		if err != nil {
			return lookupFailed(c, err)
		}
		picked := make([]common.String, 0, len(ids))
		for _, id := range ids {
			s, _ := r.String(id)
			picked = append(picked, s)
		}
		strs = picked
	}

	res := make([]stringResponse, 0, len(strs))
	for _, s := range strs {
		res = append(res, stringResponse{
			ID:       s.ID,
			Text:     s.Text,
			NodeType: r.NodeTypes.Name(s.NodeTypeID),
			NodeID:   s.NodeID,
		})
	}
	return c.JSON(http.StatusOK, res)
}
