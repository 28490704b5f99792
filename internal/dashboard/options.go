package dashboard

import (
	"bufio"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Option files read from the options directory, one value per line.
const (
	CategoriesFile     = "seed_categories.txt"
	PaymentMethodsFile = "seed_payment_methods.txt"
)

var (
	defaultCategories     = []string{"Entertainment", "Food", "Other", "Rent", "Salary", "Utilities"}
	defaultPaymentMethods = []string{"Bank Transfer", "Cash", "Credit Card"}
)

// Options are the values offered for the category and payment method fields.
// An empty list accepts any value.
type Options struct {
	Categories     []string
	PaymentMethods []string
}

// DefaultOptions returns the built-in option lists.
func DefaultOptions() Options {
	return Options{
		Categories:     slices.Clone(defaultCategories),
		PaymentMethods: slices.Clone(defaultPaymentMethods),
	}
}

// LoadOptions seeds the option lists from dir. Missing or empty files fall
// back to the defaults.
func LoadOptions(dir string) Options {
	opts := DefaultOptions()
	if cats := readLines(filepath.Join(dir, CategoriesFile)); len(cats) > 0 {
		opts.Categories = cats
	}
	if pms := readLines(filepath.Join(dir, PaymentMethodsFile)); len(pms) > 0 {
		opts.PaymentMethods = pms
	}
	return opts
}

func (o Options) HasCategory(s string) bool { return allowed(o.Categories, s) }

func (o Options) HasPaymentMethod(s string) bool { return allowed(o.PaymentMethods, s) }

func allowed(list []string, s string) bool {
	return len(list) == 0 || slices.Contains(list, s)
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
