package api

import (
	"net/http"

	"github.com/beevik/etree"

	"github.com/dgallion1/xmlsaw/flatten"
	"github.com/dgallion1/xmlsaw/xmltree"
)

// handleFlatten reads an XML document from the request body and returns the
// flattened node list wrapped in a <flattened> container. Match tag and
// attribute names come from query parameters.
func (s *Server) handleFlatten(w http.ResponseWriter, r *http.Request) {
	cfg, ok := treeConfig(w, r)
	if !ok {
		return
	}
	root, ok := s.readBodyRoot(w, r)
	if !ok {
		return
	}
	res, err := flatten.Flatten(root, cfg)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	out := etree.NewElement("flattened")
	for _, n := range res.Nodes {
		out.AddChild(n)
	}
	s.writeXML(w, out)
}

// handleRebuild reads a flattened container document and returns the
// reconstructed hierarchy. With strict=true, unresolved parent references
// fail the request instead of being dropped; with strict_ids=true, duplicate
// identity values fail it instead of resolving to the first occurrence.
func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	cfg, ok := treeConfig(w, r)
	if !ok {
		return
	}
	cfg.FailOnOrphan = r.URL.Query().Get("strict") == "true"
	cfg.FailOnDuplicateID = r.URL.Query().Get("strict_ids") == "true"

	container, ok := s.readBodyRoot(w, r)
	if !ok {
		return
	}
	root, err := flatten.Rebuild(container.ChildElements(), cfg)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	s.writeXML(w, root)
}

// treeConfig builds a flatten.Config from query parameters. Reports the
// error itself and returns ok=false when tag is missing.
func treeConfig(w http.ResponseWriter, r *http.Request) (flatten.Config, bool) {
	q := r.URL.Query()
	cfg := flatten.Config{
		Tag:        q.Get("tag"),
		IDAttr:     q.Get("id_attr"),
		ParentAttr: q.Get("parent_attr"),
	}
	if cfg.Tag == "" {
		jsonError(w, "tag query parameter is required", http.StatusBadRequest)
		return flatten.Config{}, false
	}
	return cfg, true
}

// readBodyRoot parses the request body as XML and returns its root element.
func (s *Server) readBodyRoot(w http.ResponseWriter, r *http.Request) (*etree.Element, bool) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	doc, err := xmltree.Parse(body)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return nil, false
	}
	return doc.Root(), true
}

func (s *Server) writeXML(w http.ResponseWriter, root *etree.Element) {
	w.Header().Set("Content-Type", "application/xml")
	if err := xmltree.Write(w, root); err != nil {
		s.log.Error("write response document", "error", err)
	}
}
