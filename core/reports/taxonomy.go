package reports

// UnclassifiedCode is the catch-all bucket for records whose classification
// code matches no known taxonomy node. Records are never dropped: totals
// stay conserved even for bad codes.
const UnclassifiedCode = "unclassified"

type TaxonomyNode struct {
	Code     string
	Label    string
	Children []*TaxonomyNode
}

// Taxonomy is an immutable classification tree built once at startup and
// passed explicitly into the aggregator and validator.
type Taxonomy struct {
	Roots []*TaxonomyNode
	index map[string]*TaxonomyNode
}

func newTaxonomy(roots []*TaxonomyNode) *Taxonomy {
	t := &Taxonomy{Roots: roots, index: map[string]*TaxonomyNode{}}
	var walk func(n *TaxonomyNode)
	walk = func(n *TaxonomyNode) {
		t.index[n.Code] = n
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return t
}

// Resolve maps a raw classification code to a taxonomy code, degrading
// unknown codes to the unclassified bucket.
func (t *Taxonomy) Resolve(code string) string {
	if code != "" {
		if _, ok := t.index[code]; ok {
			return code
		}
	}
	return UnclassifiedCode
}

func (t *Taxonomy) Node(code string) *TaxonomyNode {
	return t.index[code]
}

// Codes returns every node code in depth-first order.
func (t *Taxonomy) Codes() []string {
	var out []string
	var walk func(n *TaxonomyNode)
	walk = func(n *TaxonomyNode) {
		out = append(out, n.Code)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range t.Roots {
		walk(r)
	}
	return out
}

// Taxonomies bundles the shared classification trees used by the forms.
type Taxonomies struct {
	FireCauses    *Taxonomy // form spvp
	ObjectTypes   *Taxonomy // forms sovp, spzs residential subset
	NonFireCauses *Taxonomy // form ssg, flat
	COCauses      *Taxonomy // form co, keyed by victim cause code
}

func node(code, label string, children ...*TaxonomyNode) *TaxonomyNode {
	return &TaxonomyNode{Code: code, Label: label, Children: children}
}

// NewTaxonomies builds the static classification reference data.
func NewTaxonomies() *Taxonomies {
	unclassified := func() *TaxonomyNode { return node(UnclassifiedCode, "Unclassified") }
	return &Taxonomies{
		FireCauses: newTaxonomy([]*TaxonomyNode{
			node("1", "Careless handling of fire",
				node("1.1", "Smoking"),
				node("1.2", "Open flame"),
				node("1.3", "Children playing with fire"),
			),
			node("2", "Electrical equipment",
				node("2.1", "Wiring faults"),
				node("2.2", "Household appliances"),
				node("2.3", "Network overload"),
			),
			node("3", "Heating equipment",
				node("3.1", "Stove heating"),
				node("3.2", "Chimneys and flues"),
			),
			node("4", "Arson"),
			node("5", "Process and safety violations"),
			node("6", "Natural causes",
				node("6.1", "Lightning"),
				node("6.2", "Spontaneous combustion"),
			),
			unclassified(),
		}),
		ObjectTypes: newTaxonomy([]*TaxonomyNode{
			node("1", "Residential sector",
				node("1.1", "Apartment buildings"),
				node("1.2", "Private houses"),
				node("1.3", "Dachas and outbuildings"),
			),
			node("2", "Industrial facilities",
				node("2.1", "Production sites"),
				node("2.2", "Warehouses"),
			),
			node("3", "Public buildings",
				node("3.1", "Education"),
				node("3.2", "Healthcare"),
				node("3.3", "Trade and catering"),
			),
			node("4", "Transport"),
			node("5", "Agricultural facilities"),
			unclassified(),
		}),
		NonFireCauses: newTaxonomy([]*TaxonomyNode{
			node("1", "Water accidents"),
			node("2", "Mountain and terrain accidents"),
			node("3", "Household accidents"),
			node("4", "Technogenic incidents"),
			node("5", "Other emergencies"),
			unclassified(),
		}),
		COCauses: newTaxonomy([]*TaxonomyNode{
			node("1", "Stove heating faults",
				node("1.1", "Damaged flues"),
				node("1.2", "Premature damper closure"),
			),
			node("2", "Gas water heaters",
				node("2.1", "Faulty equipment"),
				node("2.2", "Missing ventilation"),
			),
			node("3", "Boiler equipment"),
			node("4", "Engines running in enclosed spaces"),
			node("5", "Other carbon monoxide sources",
				node("5.1", "Charcoal and braziers"),
				node("5.2", "Generators indoors"),
			),
			unclassified(),
		}),
	}
}

// residentialObjectRoot is the object-code subtree form spzs draws from.
const residentialObjectRoot = "1"

func isResidentialObject(code string) bool {
	return code == residentialObjectRoot || (len(code) > 2 && code[:2] == residentialObjectRoot+".")
}
