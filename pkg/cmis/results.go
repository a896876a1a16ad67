package cmis

import (
	"encoding/json"
)

// QueryResult is a page of results of the query selector.
type QueryResult struct {
	Results      []Object `json:"results"`
	HasMoreItems bool     `json:"hasMoreItems"`
	NumItems     int64    `json:"numItems"`
}

// ObjectInFolder is an entry of the children selector.
type ObjectInFolder struct {
	Object      Object `json:"object"`
	PathSegment string `json:"pathSegment,omitempty"`
}

// ObjectList is a page of the children selector.
type ObjectList struct {
	Objects      []ObjectInFolder `json:"objects"`
	HasMoreItems bool             `json:"hasMoreItems"`
	NumItems     int64            `json:"numItems"`
}

// RepositoryInfo is the subset of the repository information used by the
// fixtures.
type RepositoryInfo struct {
	ID             string `json:"repositoryId"`
	Name           string `json:"repositoryName"`
	Description    string `json:"repositoryDescription,omitempty"`
	ProductName    string `json:"productName,omitempty"`
	ProductVersion string `json:"productVersion,omitempty"`
	RootFolderID   string `json:"rootFolderId"`
	CMISVersion    string `json:"cmisVersionSupported,omitempty"`
	RepositoryURL  string `json:"repositoryUrl,omitempty"`
	RootFolderURL  string `json:"rootFolderUrl,omitempty"`
}

// RepositoryInfos is the response of the repositoryInfo selector: the
// repositories keyed by their id.
type RepositoryInfos map[string]*RepositoryInfo

// TypeMutability tells what can be done on a type.
type TypeMutability struct {
	Create bool `json:"create"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}

// PropertyDefinition describes a property of a type.
type PropertyDefinition struct {
	ID           string `json:"id"`
	LocalName    string `json:"localName,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	QueryName    string `json:"queryName,omitempty"`
	Description  string `json:"description,omitempty"`
	PropertyType string `json:"propertyType"`
	Cardinality  string `json:"cardinality"`
	Updatability string `json:"updatability"`
	Inherited    bool   `json:"inherited"`
	Required     bool   `json:"required"`
	Queryable    bool   `json:"queryable"`
	Orderable    bool   `json:"orderable"`
}

// TypeDefinition is the JSON representation of a type, as sent in the type
// field of createType and returned by the typeDefinition selector.
type TypeDefinition struct {
	ID                       string                         `json:"id"`
	LocalName                string                         `json:"localName,omitempty"`
	LocalNamespace           string                         `json:"localNamespace,omitempty"`
	DisplayName              string                         `json:"displayName,omitempty"`
	QueryName                string                         `json:"queryName,omitempty"`
	Description              string                         `json:"description,omitempty"`
	BaseID                   string                         `json:"baseId"`
	ParentID                 string                         `json:"parentId,omitempty"`
	Creatable                bool                           `json:"creatable"`
	Fileable                 bool                           `json:"fileable"`
	Queryable                bool                           `json:"queryable"`
	FulltextIndexed          bool                           `json:"fulltextIndexed"`
	IncludedInSupertypeQuery bool                           `json:"includedInSupertypeQuery"`
	ControllablePolicy       bool                           `json:"controllablePolicy"`
	ControllableACL          bool                           `json:"controllableACL"`
	Versionable              bool                           `json:"versionable,omitempty"`
	ContentStreamAllowed     string                         `json:"contentStreamAllowed,omitempty"`
	TypeMutability           *TypeMutability                `json:"typeMutability,omitempty"`
	PropertyDefinitions      map[string]*PropertyDefinition `json:"propertyDefinitions,omitempty"`
}

// NewDocumentType returns the definition of a creatable, queryable document
// subtype with the default values of a fixture type.
func NewDocumentType(id, parentID string) *TypeDefinition {
	if parentID == "" {
		parentID = BaseDocument
	}
	return &TypeDefinition{
		ID:                       id,
		LocalName:                id,
		DisplayName:              id,
		QueryName:                id,
		Description:              id,
		BaseID:                   BaseDocument,
		ParentID:                 parentID,
		Creatable:                true,
		Fileable:                 true,
		Queryable:                true,
		IncludedInSupertypeQuery: true,
		ControllableACL:          true,
		ContentStreamAllowed:     "allowed",
		TypeMutability:           &TypeMutability{Create: true, Update: true, Delete: true},
	}
}

// JSON returns the definition as sent in the type field of a createType
// action.
func (t *TypeDefinition) JSON() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
