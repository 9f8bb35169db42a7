package document

// Edit records one operator change.
type Edit struct {
	Path string `json:"path"`
	Old  Value  `json:"old"`
	New  Value  `json:"new"`
}

// UpdateCell sets the value at path. Raw and Conf are kept; NeedsReview is
// recomputed from the structure of the new value, since the operator has
// now looked at the cell.
func (d *CurvatureDoc) UpdateCell(path string, v Value) (Edit, error) {
	c, kind, err := d.lookup(path)
	if err != nil {
		return Edit{}, err
	}
	edit := Edit{Path: path, Old: c.Value, New: v}
	c.Value = v
	c.NeedsReview = suspicious(kind, *c)
	return edit, nil
}
