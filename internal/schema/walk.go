package schema

// Visitor receives every question of a document in page order, then element order.
// Panels are descended into and never visited themselves.
type Visitor interface {
	VisitRating(q *RatingQuestion)
	VisitMatrix(q *MatrixQuestion)
	VisitMultiText(q *MultiTextQuestion)
	VisitText(q *TextQuestion)
}

// Walk traverses the document depth first.
func Walk(doc *Document, v Visitor) {
	if doc == nil {
		return
	}
	for i := range doc.Pages {
		walkElements(doc.Pages[i].Elements, v)
	}
}

func walkElements(elements []Element, v Visitor) {
	for _, el := range elements {
		switch e := el.(type) {
		case *Panel:
			walkElements(e.Elements, v)
		case *RatingQuestion:
			v.VisitRating(e)
		case *MatrixQuestion:
			v.VisitMatrix(e)
		case *MultiTextQuestion:
			v.VisitMultiText(e)
		case *TextQuestion:
			v.VisitText(e)
		}
	}
}
