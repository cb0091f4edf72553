package prismic

import (
	"fmt"
	"strconv"
)

// At builds an equality predicate, e.g. [at(document.type, "post")].
func At(path, value string) string {
	return fmt.Sprintf("[at(%s, %s)]", path, strconv.Quote(value))
}
