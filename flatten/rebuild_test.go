package flatten

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/xmlsaw/errs"
	"github.com/dgallion1/xmlsaw/xmltree"
)

func TestRebuild_ProductExample(t *testing.T) {
	original := mustRoot(t, `<Product id="12345">`+
		`<Name>Sample Product</Name><Price>30.00</Price>`+
		`<Product id="67890"><Name>Another</Name></Product>`+
		`<Product id="54321"><Name>Third</Name></Product>`+
		`</Product>`)

	res, err := Flatten(original, Config{Tag: "Product"})
	require.NoError(t, err)

	root, err := Rebuild(res.Nodes, Config{Tag: "Product"})
	require.NoError(t, err)
	require.Equal(t, RootTag, root.Tag)
	require.Len(t, root.ChildElements(), 1)

	rebuilt := root.ChildElements()[0]
	require.Equal(t, "12345", rebuilt.SelectAttrValue("id", ""))
	require.True(t, xmltree.Equal(rebuilt, original, "parent_id"))

	var productIDs []string
	for _, c := range rebuilt.ChildElements() {
		if c.Tag == "Product" {
			productIDs = append(productIDs, c.SelectAttrValue("id", ""))
		}
	}
	require.Equal(t, []string{"67890", "54321"}, productIDs)
}

func TestRebuild_RoundTripSynthesizedIDs(t *testing.T) {
	original := mustRoot(t, `<product><name>top</name>`+
		`<product><name>a</name><product><name>a1</name></product></product>`+
		`<product><name>b</name></product>`+
		`</product>`)

	res, err := Flatten(original, Config{Tag: "product"})
	require.NoError(t, err)

	root, err := Rebuild(res.Nodes, Config{Tag: "product"})
	require.NoError(t, err)
	require.Len(t, root.ChildElements(), 1)
	require.True(t, xmltree.Equal(root.ChildElements()[0], original, "id", "parent_id"))
}

func TestRebuild_NestedScopeRoundTrip(t *testing.T) {
	original := mustRoot(t, `<product id="r"><box><product id="m"><product id="m2"/></product></box></product>`)

	res, err := Flatten(original, Config{Tag: "product"})
	require.NoError(t, err)

	// m2's parent was never detached; the lookup has to find it nested
	// inside the pruned root.
	root, err := Rebuild(res.Nodes, Config{Tag: "product"})
	require.NoError(t, err)
	require.Len(t, root.ChildElements(), 1)
	require.True(t, xmltree.Equal(root.ChildElements()[0], original, "parent_id"))
}

func TestRebuild_OrphanDroppedByDefault(t *testing.T) {
	nodes := []*etree.Element{
		mustRoot(t, `<product id="1"><name>keep</name></product>`),
		mustRoot(t, `<product id="2" parent_id="999"/>`),
	}

	root, err := Rebuild(nodes, Config{Tag: "product"})
	require.NoError(t, err)
	require.Len(t, root.ChildElements(), 1)

	kept := root.ChildElements()[0]
	require.Equal(t, "1", kept.SelectAttrValue("id", ""))
	for _, c := range kept.ChildElements() {
		require.NotEqual(t, "product", c.Tag)
	}
}

func TestRebuild_OrphanStrict(t *testing.T) {
	nodes := []*etree.Element{
		mustRoot(t, `<product id="1"/>`),
		mustRoot(t, `<product id="2" parent_id="999"/>`),
	}

	_, err := Rebuild(nodes, Config{Tag: "product", FailOnOrphan: true})
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrStructural)
	require.ErrorContains(t, err, `"999"`)
}

func TestRebuild_NoTopLevel(t *testing.T) {
	_, err := Rebuild(nil, Config{Tag: "product"})
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrStructural)
	require.ErrorContains(t, err, "no top-level element found")

	// A sequence of nothing but orphans fails the same way.
	nodes := []*etree.Element{mustRoot(t, `<product id="2" parent_id="999"/>`)}
	_, err = Rebuild(nodes, Config{Tag: "product"})
	require.Error(t, err)
	require.ErrorContains(t, err, "no top-level element found")
}

func TestRebuild_SelfReferenceDropped(t *testing.T) {
	nodes := []*etree.Element{
		mustRoot(t, `<product id="1"/>`),
		mustRoot(t, `<product id="x" parent_id="x"/>`),
	}

	root, err := Rebuild(nodes, Config{Tag: "product"})
	require.NoError(t, err)
	require.Len(t, root.ChildElements(), 1)
	require.Equal(t, "1", root.ChildElements()[0].SelectAttrValue("id", ""))
}

func TestRebuild_DuplicateIDFirstWins(t *testing.T) {
	nodes := []*etree.Element{
		mustRoot(t, `<product id="X"><name>first</name></product>`),
		mustRoot(t, `<product id="X"><name>second</name></product>`),
		mustRoot(t, `<product id="c" parent_id="X"/>`),
	}

	root, err := Rebuild(nodes, Config{Tag: "product"})
	require.NoError(t, err)
	require.Len(t, root.ChildElements(), 2)

	// The reference resolves to the earlier of the two id=X nodes.
	first := root.ChildElements()[0]
	require.Equal(t, "first", first.SelectElement("name").Text())
	child := first.SelectElement("product")
	require.NotNil(t, child)
	require.Equal(t, "c", child.SelectAttrValue("id", ""))

	second := root.ChildElements()[1]
	require.Equal(t, "second", second.SelectElement("name").Text())
	require.Nil(t, second.SelectElement("product"))
}

func TestRebuild_DuplicateIDStrict(t *testing.T) {
	nodes := []*etree.Element{
		mustRoot(t, `<product id="X"><name>first</name></product>`),
		mustRoot(t, `<product id="X"><name>second</name></product>`),
		mustRoot(t, `<product id="c" parent_id="X"/>`),
	}

	_, err := Rebuild(nodes, Config{Tag: "product", FailOnDuplicateID: true})
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrStructural)
	require.ErrorContains(t, err, `"X"`)

	// Orphan strictness alone does not cover collisions; the two knobs are
	// independent.
	_, err = Rebuild(nodes, Config{Tag: "product", FailOnOrphan: true})
	require.NoError(t, err)
}

func TestRebuild_MultipleTopLevel(t *testing.T) {
	nodes := []*etree.Element{
		mustRoot(t, `<product id="1"/>`),
		mustRoot(t, `<product id="2"/>`),
	}

	root, err := Rebuild(nodes, Config{Tag: "product"})
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2"}, ids(root.ChildElements(), "id"))
}

func TestRebuild_NonMatchingParentlessNodeIgnored(t *testing.T) {
	nodes := []*etree.Element{
		mustRoot(t, `<catalog/>`),
		mustRoot(t, `<product id="1"/>`),
	}

	root, err := Rebuild(nodes, Config{Tag: "product"})
	require.NoError(t, err)
	require.Len(t, root.ChildElements(), 1)
	require.Equal(t, "product", root.ChildElements()[0].Tag)
}
