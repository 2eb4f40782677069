package entity

type Category struct {
	ID            string   `bson:"_id,omitempty" json:"id"`
	Name          string   `bson:"name" json:"name"`
	SubCategories []string `bson:"subCategories,omitempty" json:"subCategories,omitempty"`
}

func (c *Category) Snapshot(subCategory string) CategorySnapshot {
	return CategorySnapshot{Name: c.Name, CategoryID: c.ID, SubCategory: subCategory}
}

type Organisation struct {
	ID   string `bson:"_id,omitempty" json:"id"`
	Name string `bson:"name" json:"name"`
}

func (o *Organisation) Snapshot() OrganisationSnapshot {
	return OrganisationSnapshot{Name: o.Name, OrganisationID: o.ID}
}
