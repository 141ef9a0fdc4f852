package model

type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Category struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
}
