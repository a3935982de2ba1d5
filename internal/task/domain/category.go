package domain

import (
	"sort"
	"strings"
)

// Category es una etiqueta de categoría detectada de forma heurística.
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryHealth   Category = "Health"
	CategoryShopping Category = "Shopping"
	CategoryPersonal Category = "Personal"
	CategoryErrands  Category = "Errands"
	CategoryLearning Category = "Learning"
)

// categoryKeywords es la tabla fija de palabras clave por categoría.
// La coincidencia es por subcadena, no por palabra completa ("get" coincide
// dentro de "forget").
var categoryKeywords = map[Category][]string{
	CategoryWork:     {"work", "job", "meeting", "project", "deadline", "office", "email", "call"},
	CategoryHealth:   {"doctor", "appointment", "medicine", "exercise", "gym", "dentist", "therapy"},
	CategoryShopping: {"buy", "purchase", "store", "grocery", "milk", "bread", "food", "get"},
	CategoryPersonal: {"family", "friend", "birthday", "home", "clean", "organize"},
	CategoryErrands:  {"bank", "post office", "dmv", "pickup", "drop off", "return"},
	CategoryLearning: {"read", "study", "course", "book", "research", "learn", "practice"},
}

// CategorySet es un conjunto sin orden de categorías.
type CategorySet map[Category]struct{}

// Has indica si la categoría está en el conjunto.
func (s CategorySet) Has(c Category) bool {
	_, ok := s[c]
	return ok
}

// Sorted devuelve las categorías ordenadas alfabéticamente, sólo para mostrar.
func (s CategorySet) Sorted() []Category {
	out := make([]Category, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DetectCategories concatena título y tags en minúsculas y devuelve las
// categorías cuya lista de palabras clave aparece en el texto.
func DetectCategories(title string, tags []string) CategorySet {
	text := strings.ToLower(title + " " + strings.Join(tags, " "))

	set := CategorySet{}
	for category, keywords := range categoryKeywords {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				set[category] = struct{}{}
				break
			}
		}
	}
	return set
}

// Categories devuelve todas las categorías conocidas.
func Categories() []Category {
	return []Category{CategoryWork, CategoryHealth, CategoryShopping, CategoryPersonal, CategoryErrands, CategoryLearning}
}

// ParseCategory acepta el nombre sin distinguir mayúsculas ("work", "Work").
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories() {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, true
		}
	}
	return "", false
}
