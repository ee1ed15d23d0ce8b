package domain

import "time"

type PageType string

const (
	PageTypeLanding   PageType = "landing"
	PageTypePortfolio PageType = "portfolio"
	PageTypeBlog      PageType = "blog"
	PageTypeEcommerce PageType = "ecommerce"
	PageTypeCorporate PageType = "corporate"
	PageTypePersonal  PageType = "personal"
	PageTypeOther     PageType = "other"
)

var PageTypes = []PageType{
	PageTypeLanding,
	PageTypePortfolio,
	PageTypeBlog,
	PageTypeEcommerce,
	PageTypeCorporate,
	PageTypePersonal,
	PageTypeOther,
}

func (p PageType) Valid() bool {
	for _, known := range PageTypes {
		if p == known {
			return true
		}
	}
	return false
}

const BriefStatusPending = "pending"

// Brief is a client's content request. It is written once at submission
// and never changed by the deployment pipeline.
type Brief struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Industry    string            `json:"industry"`
	PageType    PageType          `json:"pageType"`
	Description string            `json:"description"`
	Colors      map[string]string `json:"colors"`
	Products    []map[string]any  `json:"products"`
	Status      string            `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}
