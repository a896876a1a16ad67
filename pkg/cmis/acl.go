package cmis

import (
	"bytes"
	"encoding/json"
	"encoding/xml"

	"github.com/nemakiware/cmis-fixture/pkg/utils"
)

// ACE is an access control entry: a principal and its permissions.
type ACE struct {
	Principal   string   `json:"principalId"`
	Permissions []string `json:"permissions"`
	Direct      bool     `json:"isDirect"`
}

// ACL is the list of entries attached to an object.
type ACL struct {
	ACEs  []ACE `json:"aces"`
	Exact bool  `json:"isExact"`
}

type rawACE struct {
	Principal   json.RawMessage `json:"principal"`
	PrincipalID string          `json:"principalId"`
	Permissions []string        `json:"permissions"`
	IsDirect    *bool           `json:"isDirect"`
	Direct      *bool           `json:"direct"`
}

// UnmarshalJSON accepts the principal either nested, as
// {"principal": {"principalId": "x"}}, or flat, as {"principalId": "x"}.
func (a *ACE) UnmarshalJSON(b []byte) error {
	var raw rawACE
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	a.Principal = raw.PrincipalID
	if p := bytes.TrimSpace(raw.Principal); len(p) > 0 && !bytes.Equal(p, []byte("null")) {
		if p[0] == '"' {
			if err := json.Unmarshal(p, &a.Principal); err != nil {
				return err
			}
		} else {
			var nested struct {
				PrincipalID string `json:"principalId"`
			}
			if err := json.Unmarshal(p, &nested); err != nil {
				return err
			}
			if nested.PrincipalID != "" {
				a.Principal = nested.PrincipalID
			}
		}
	}
	a.Permissions = raw.Permissions
	a.Direct = true
	if raw.IsDirect != nil {
		a.Direct = *raw.IsDirect
	} else if raw.Direct != nil {
		a.Direct = *raw.Direct
	}
	return nil
}

// UnmarshalJSON accepts the entries either at the top level, as
// {"aces": [...]}, or nested, as {"acl": {"aces": [...]}}.
func (acl *ACL) UnmarshalJSON(b []byte) error {
	type inner struct {
		ACEs    []ACE `json:"aces"`
		IsExact *bool `json:"isExact"`
	}
	var raw struct {
		inner
		ACL *inner `json:"acl"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	src := raw.inner
	if len(src.ACEs) == 0 && raw.ACL != nil {
		src = *raw.ACL
	}
	acl.ACEs = src.ACEs
	acl.Exact = src.IsExact == nil || *src.IsExact
	return nil
}

// Has returns true if the principal has at least one entry.
func (acl *ACL) Has(principal string) bool {
	for _, ace := range acl.ACEs {
		if ace.Principal == principal {
			return true
		}
	}
	return false
}

// Permissions returns the sorted set of permissions of a principal, merging
// its direct and inherited entries.
func (acl *ACL) Permissions(principal string) []string {
	var perms []string
	for _, ace := range acl.ACEs {
		if ace.Principal == principal {
			perms = append(perms, ace.Permissions...)
		}
	}
	return utils.UniqueStrings(perms)
}

// DirectPermissions is like Permissions, restricted to the direct entries.
func (acl *ACL) DirectPermissions(principal string) []string {
	var perms []string
	for _, ace := range acl.ACEs {
		if ace.Principal == principal && ace.Direct {
			perms = append(perms, ace.Permissions...)
		}
	}
	return utils.UniqueStrings(perms)
}

// Principals returns the sorted set of principals that have an entry.
func (acl *ACL) Principals() []string {
	var principals []string
	for _, ace := range acl.ACEs {
		principals = append(principals, ace.Principal)
	}
	return utils.UniqueStrings(principals)
}

// AtomNamespace is the XML namespace of the CMIS core elements.
const AtomNamespace = "http://docs.oasis-open.org/ns/cmis/core/200908/"

type atomACL struct {
	XMLName     xml.Name  `xml:"acl"`
	Permissions []atomACE `xml:"permission"`
	Exact       *bool     `xml:"exact"`
}

type atomACE struct {
	PrincipalID string   `xml:"principal>principalId"`
	Permissions []string `xml:"permission"`
	Direct      *bool    `xml:"direct"`
}

// ParseAtomACL decodes the <cmis:acl> document of the AtomPub binding. The
// elements are matched by local name, so the namespace prefix does not
// matter.
func ParseAtomACL(b []byte) (*ACL, error) {
	var raw atomACL
	if err := xml.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	acl := &ACL{Exact: raw.Exact == nil || *raw.Exact}
	for _, p := range raw.Permissions {
		ace := ACE{Principal: p.PrincipalID, Permissions: p.Permissions, Direct: true}
		if p.Direct != nil {
			ace.Direct = *p.Direct
		}
		acl.ACEs = append(acl.ACEs, ace)
	}
	return acl, nil
}

// MarshalAtom writes the ACL as a <cmis:acl> document.
func (acl *ACL) MarshalAtom() ([]byte, error) {
	type ace struct {
		PrincipalID string   `xml:"cmis:principal>cmis:principalId"`
		Permissions []string `xml:"cmis:permission"`
		Direct      bool     `xml:"cmis:direct"`
	}
	doc := struct {
		XMLName xml.Name `xml:"cmis:acl"`
		NS      string   `xml:"xmlns:cmis,attr"`
		ACEs    []ace    `xml:"cmis:permission"`
		Exact   bool     `xml:"cmis:exact"`
	}{NS: AtomNamespace, Exact: acl.Exact}
	for _, a := range acl.ACEs {
		doc.ACEs = append(doc.ACEs, ace{PrincipalID: a.Principal, Permissions: a.Permissions, Direct: a.Direct})
	}
	b, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), b...), nil
}
