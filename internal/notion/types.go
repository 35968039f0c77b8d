package notion

// Property is both the write shape for page property values and the read
// shape when pages come back from a query. Exactly one of the value fields
// is set per property.
type Property struct {
	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Number      *float64       `json:"number,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Date        *DateValue     `json:"date,omitempty"`
}

type SelectOption struct {
	Name string `json:"name"`
}

type DateValue struct {
	Start string `json:"start"`
}

type RichText struct {
	Type      string       `json:"type,omitempty"`
	Text      *TextContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text,omitempty"`
}

type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

type Link struct {
	URL string `json:"url"`
}

// Block is a page content block. Set once at page creation and never
// regenerated by status-only updates.
type Block struct {
	Object    string     `json:"object"`
	Type      string     `json:"type"`
	Heading2  *BlockText `json:"heading_2,omitempty"`
	Heading3  *BlockText `json:"heading_3,omitempty"`
	Paragraph *BlockText `json:"paragraph,omitempty"`
	Bulleted  *BlockText `json:"bulleted_list_item,omitempty"`
}

type BlockText struct {
	RichText []RichText `json:"rich_text"`
}

func text(s string) []RichText {
	return []RichText{{Type: "text", Text: &TextContent{Content: s}}}
}

func TitleProp(s string) Property    { return Property{Title: text(s)} }
func RichTextProp(s string) Property { return Property{RichText: text(s)} }

func NumberProp(f float64) Property { return Property{Number: &f} }

func SelectProp(name string) Property {
	return Property{Select: &SelectOption{Name: name}}
}

func MultiSelectProp(names []string) Property {
	opts := make([]SelectOption, 0, len(names))
	for _, n := range names {
		opts = append(opts, SelectOption{Name: n})
	}
	return Property{MultiSelect: opts}
}

func DateProp(startISO string) Property {
	return Property{Date: &DateValue{Start: startISO}}
}

func Heading2(s string) Block {
	return Block{Object: "block", Type: "heading_2", Heading2: &BlockText{RichText: text(s)}}
}

func Heading3(s string) Block {
	return Block{Object: "block", Type: "heading_3", Heading3: &BlockText{RichText: text(s)}}
}

func Paragraph(s string) Block {
	return Block{Object: "block", Type: "paragraph", Paragraph: &BlockText{RichText: text(s)}}
}

func Bullet(s string) Block {
	return Block{Object: "block", Type: "bulleted_list_item", Bulleted: &BlockText{RichText: text(s)}}
}

// BulletLink renders a bulleted item whose text is a hyperlink.
func BulletLink(s, url string) Block {
	rt := []RichText{{Type: "text", Text: &TextContent{Content: s, Link: &Link{URL: url}}}}
	return Block{Object: "block", Type: "bulleted_list_item", Bulleted: &BlockText{RichText: rt}}
}

// Page is a record in the destination store, one per order.
type Page struct {
	ID         string              `json:"id"`
	Properties map[string]Property `json:"properties"`
}

// SelectName returns the select value of the named property, or "" when
// the property is absent or unset.
func (p *Page) SelectName(name string) string {
	prop, ok := p.Properties[name]
	if !ok || prop.Select == nil {
		return ""
	}
	return prop.Select.Name
}

// NumberValue returns the number value of the named property, or 0.
func (p *Page) NumberValue(name string) float64 {
	prop, ok := p.Properties[name]
	if !ok || prop.Number == nil {
		return 0
	}
	return *prop.Number
}
