package entity

import "fmt"

type Strategy string

const (
	ByID          Strategy = "id"
	ByClassName   Strategy = "class name"
	ByXPath       Strategy = "xpath"
	ByCSSSelector Strategy = "css selector"
	ByName        Strategy = "name"
	ByTagName     Strategy = "tag name"
	ByLinkText    Strategy = "link text"
)

// Locator describes how to find zero or more nodes in the rendered document.
type Locator struct {
	Strategy Strategy
	Value    string
}

func ID(value string) Locator        { return Locator{Strategy: ByID, Value: value} }
func ClassName(value string) Locator { return Locator{Strategy: ByClassName, Value: value} }
func XPath(value string) Locator     { return Locator{Strategy: ByXPath, Value: value} }
func CSS(value string) Locator       { return Locator{Strategy: ByCSSSelector, Value: value} }

func (l Locator) String() string {
	return fmt.Sprintf("%s='%s'", l.Strategy, l.Value)
}

func (l Locator) IsZero() bool {
	return l.Strategy == "" || l.Value == ""
}
