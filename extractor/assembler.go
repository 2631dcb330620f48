package extractor

import (
	"strings"

	"retail-extractor/adapters"
	"retail-extractor/internal/types"
)

// specFields maps specification keys (lower case) to master columns they
// may fill when the page gave no better value
var specFields = map[string]string{
	"model":             "manufacturerkey",
	"šifra proizvođača": "manufacturerkey",
	"zemlja porekla":    "countryoforigin",
	"zemlja porijekla":  "countryoforigin",
	"poreklo":           "countryoforigin",
	"težina":            "weight",
	"masa":              "weight",
	"širina":            "width",
	"visina":            "height",
	"dubina":            "length",
	"dužina":            "length",
	"boja":              "variantname",
	"materijal":         "composition",
	"namena":            "application",
}

var brandKeys = map[string]bool{"brend": true, "brand": true, "proizvođač": true}

// Assemble turns the candidate fields of one page into records that share
// one provider key. A page without an identifier yields no records.
func Assemble(x *types.Extraction) (*types.Records, error) {
	id := adapters.CleanText(x.Identifier)
	if id == "" {
		return nil, types.NewMissingIdentifierError(x.Site, x.URL)
	}
	key := types.Some(id)

	specs, specBrand := assembleSpecs(key, x.Specs)

	p := &types.Product{
		ProviderKey:     key,
		GTIN:            key,
		Title:           types.OptOf(adapters.CleanText(x.Title)),
		Price:           types.OptOf(adapters.CleanText(x.Price)),
		ProductType:     types.OptOf(adapters.CleanText(x.Category)),
		LongDescription: types.OptOf(adapters.CleanText(x.Description)),
	}
	p.Brand = types.OptOf(specBrand).
		Or(types.OptOf(adapters.CleanText(x.Brand))).
		Or(types.OptOf(adapters.FirstToken(x.Title)))

	for _, s := range specs {
		column, ok := specFields[strings.ToLower(s.Key.String())]
		if !ok {
			continue
		}
		if field := p.Field(column); field != nil && !field.Present() {
			*field = s.Value
		}
	}

	return &types.Records{
		Product: p,
		Specs:   specs,
		Media:   assembleMedia(key, x),
	}, nil
}

// assembleSpecs keys specs by name within the page: a repeated name keeps its
// first position and takes the later value
func assembleSpecs(key types.Opt, pairs []types.SpecPair) ([]*types.Spec, string) {
	var specs []*types.Spec
	index := make(map[string]int)
	brand := ""

	for _, pair := range pairs {
		name := adapters.CleanText(pair.Key)
		value := adapters.CleanText(pair.Value)
		if name == "" || value == "" {
			continue
		}
		if brandKeys[strings.ToLower(name)] {
			brand = value
		}
		if i, ok := index[name]; ok {
			specs[i].Value = types.Some(value)
			continue
		}
		index[name] = len(specs)
		specs = append(specs, &types.Spec{
			ProviderKey: key,
			Key:         types.Some(name),
			Value:       types.Some(value),
		})
	}
	return specs, brand
}

// assembleMedia fills image and datasheet slots in order, or returns nil
// when the page had no URLs
func assembleMedia(key types.Opt, x *types.Extraction) *types.Media {
	m := &types.Media{ProviderKey: key, GTIN: key}

	slot := 0
	for _, u := range x.Images {
		if slot == types.MaxImages {
			break
		}
		if u = strings.TrimSpace(u); u != "" {
			m.Images[slot] = types.Some(u)
			slot++
		}
	}

	slot = 0
	for _, u := range x.Datasheets {
		if slot == types.MaxDatasheets {
			break
		}
		if u = strings.TrimSpace(u); u != "" {
			m.Datasheets[slot] = types.Some(u)
			slot++
		}
	}

	if !m.HasContent() {
		return nil
	}
	return m
}
