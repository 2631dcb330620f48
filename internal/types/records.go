package types

import "fmt"

const (
	// MaxImages is the number of imageurl_N slots on a Media record
	MaxImages = 10
	// MaxDatasheets is the number of datasheeturl_N slots on a Media record
	MaxDatasheets = 3
)

// ProductHeader is the fixed column order of the master table
var ProductHeader = []string{
	"providerkey", "gtin", "manufacturerkey", "brand", "productType", "weight",
	"title", "price", "countryoforigin", "tariccode", "length", "width",
	"height", "releasedate", "tarescode", "weeenumber", "variantname",
	"longdescription", "composition", "application",
}

// SpecHeader is the fixed column order of the specification table
var SpecHeader = []string{"providerKey", "SpecificationKey", "SpecificationValue"}

// MediaHeader is the fixed column order of the media table
var MediaHeader = mediaHeader()

func mediaHeader() []string {
	h := []string{"providerKey", "gtin"}
	for i := 1; i <= MaxDatasheets; i++ {
		h = append(h, fmt.Sprintf("datasheeturl_%d", i))
	}
	h = append(h, "safetydatasheet", "energylabel")
	for i := 1; i <= MaxImages; i++ {
		h = append(h, fmt.Sprintf("imageurl_%d", i))
	}
	return h
}

// Record is a row destined for one of the output tables
type Record interface {
	Header() []string
	Cells() []Opt
}

// Product is one row of the master table
type Product struct {
	ProviderKey     Opt
	GTIN            Opt
	ManufacturerKey Opt
	Brand           Opt
	ProductType     Opt
	Weight          Opt
	Title           Opt
	Price           Opt
	CountryOfOrigin Opt
	TaricCode       Opt
	Length          Opt
	Width           Opt
	Height          Opt
	ReleaseDate     Opt
	TaresCode       Opt
	WeeeNumber      Opt
	VariantName     Opt
	LongDescription Opt
	Composition     Opt
	Application     Opt
}

func (p *Product) Header() []string { return ProductHeader }

func (p *Product) Cells() []Opt {
	return []Opt{
		p.ProviderKey, p.GTIN, p.ManufacturerKey, p.Brand, p.ProductType, p.Weight,
		p.Title, p.Price, p.CountryOfOrigin, p.TaricCode, p.Length, p.Width,
		p.Height, p.ReleaseDate, p.TaresCode, p.WeeeNumber, p.VariantName,
		p.LongDescription, p.Composition, p.Application,
	}
}

// Field returns a pointer to the named master column, or nil
func (p *Product) Field(column string) *Opt {
	switch column {
	case "gtin":
		return &p.GTIN
	case "manufacturerkey":
		return &p.ManufacturerKey
	case "brand":
		return &p.Brand
	case "productType":
		return &p.ProductType
	case "weight":
		return &p.Weight
	case "title":
		return &p.Title
	case "price":
		return &p.Price
	case "countryoforigin":
		return &p.CountryOfOrigin
	case "tariccode":
		return &p.TaricCode
	case "length":
		return &p.Length
	case "width":
		return &p.Width
	case "height":
		return &p.Height
	case "releasedate":
		return &p.ReleaseDate
	case "tarescode":
		return &p.TaresCode
	case "weeenumber":
		return &p.WeeeNumber
	case "variantname":
		return &p.VariantName
	case "longdescription":
		return &p.LongDescription
	case "composition":
		return &p.Composition
	case "application":
		return &p.Application
	}
	return nil
}

// Spec is one row of the specification table
type Spec struct {
	ProviderKey Opt
	Key         Opt
	Value       Opt
}

func (s *Spec) Header() []string { return SpecHeader }

func (s *Spec) Cells() []Opt {
	return []Opt{s.ProviderKey, s.Key, s.Value}
}

// Media is one row of the media table
type Media struct {
	ProviderKey     Opt
	GTIN            Opt
	Datasheets      [MaxDatasheets]Opt
	SafetyDatasheet Opt
	EnergyLabel     Opt
	Images          [MaxImages]Opt
}

func (m *Media) Header() []string { return MediaHeader }

func (m *Media) Cells() []Opt {
	cells := []Opt{m.ProviderKey, m.GTIN}
	cells = append(cells, m.Datasheets[:]...)
	cells = append(cells, m.SafetyDatasheet, m.EnergyLabel)
	cells = append(cells, m.Images[:]...)
	return cells
}

// HasContent reports whether any image or datasheet URL is present
func (m *Media) HasContent() bool {
	for _, d := range m.Datasheets {
		if d.Present() {
			return true
		}
	}
	for _, img := range m.Images {
		if img.Present() {
			return true
		}
	}
	return false
}

// Records is everything assembled from one product page
type Records struct {
	Product *Product
	Specs   []*Spec
	Media   *Media // nil when the page had no media URLs
}
