package domain

// Drink is a single menu entry. Field names follow the backend Menu table
// schema exactly; a Drink is immutable once fetched.
type Drink struct {
	ID          string `json:"id,omitempty"`
	Item        string `json:"Item"`
	Categories  string `json:"categories"`
	Description string `json:"Description"`
	Price       int    `json:"Price"`
}

// Menu display order. Categories not listed here are not shown.
var MenuCategories = []string{"原味茶", "風味茶", "奶茶", "芝士奶蓋", "冬瓜茶", "鮮奶茶", "袋子與其他"}

// Temperature levels, hottest to coldest as presented in the shop.
var Temperatures = []string{"熱", "正常冰", "少冰", "微冰", "去冰", "完全去冰"}

// Sweetness levels, sweetest first.
var SweetnessLevels = []string{"正常甜", "七分甜", "五分甜", "三分甜", "一分甜", "無糖"}

// ToppingNone is the default "no topping" choice.
const ToppingNone = "不加料"

// ToppingPrices maps each topping to its surcharge per drink.
var ToppingPrices = map[string]int{
	ToppingNone: 0,
	"琥珀粉圓":      10,
	"嫩仙草":       10,
	"粉粿":        10,
	"雙粉":        10,
	"草仔粿":       10,
}

// ValidTemperature reports whether t is one of the supported temperature levels.
func ValidTemperature(t string) bool {
	for _, v := range Temperatures {
		if v == t {
			return true
		}
	}
	return false
}

// ValidSweetness reports whether s is one of the supported sweetness levels.
func ValidSweetness(s string) bool {
	for _, v := range SweetnessLevels {
		if v == s {
			return true
		}
	}
	return false
}

// ValidTopping reports whether t is a known topping.
func ValidTopping(t string) bool {
	_, ok := ToppingPrices[t]
	return ok
}

// LineTotal computes the fully-priced line total for a drink with the given
// topping and quantity: (base price + topping surcharge) * quantity.
func LineTotal(d Drink, topping string, quantity int) int {
	return (d.Price + ToppingPrices[topping]) * quantity
}

// CategoryGroup is one menu category with its drinks, in display order.
type CategoryGroup struct {
	Category string  `json:"category"`
	Drinks   []Drink `json:"drinks"`
}
