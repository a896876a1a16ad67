package cmis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectShapes(t *testing.T) {
	verbose := `{"properties": {
		"cmis:objectId": {"id": "cmis:objectId", "type": "id", "cardinality": "single", "value": "f0a1"},
		"cmis:name": {"value": "restricted-folder-1"},
		"cmis:baseTypeId": {"value": "cmis:folder"},
		"cmis:contentStreamLength": {"value": 1234},
		"cmis:secondaryObjectTypeIds": {"value": ["nemaki:tag", "nemaki:review"]}
	}}`
	succinct := `{"succinctProperties": {
		"cmis:objectId": "f0a1",
		"cmis:name": "restricted-folder-1",
		"cmis:baseTypeId": "cmis:folder",
		"cmis:contentStreamLength": 1234,
		"cmis:secondaryObjectTypeIds": ["nemaki:tag", "nemaki:review"]
	}}`

	for name, body := range map[string]string{"Verbose": verbose, "Succinct": succinct} {
		t.Run(name, func(t *testing.T) {
			var obj Object
			require.NoError(t, json.Unmarshal([]byte(body), &obj))
			assert.Equal(t, "f0a1", obj.ID())
			assert.Equal(t, "restricted-folder-1", obj.Name())
			assert.True(t, obj.IsFolder())
			assert.EqualValues(t, 1234, obj.Properties.Int64(PropContentLength))
			assert.Equal(t, []string{"nemaki:tag", "nemaki:review"}, obj.Properties.Strings(PropSecondaryTypeIDs))
			assert.Equal(t, "nemaki:tag", obj.Properties.String(PropSecondaryTypeIDs))
		})
	}

	t.Run("NoProperties", func(t *testing.T) {
		var obj Object
		require.NoError(t, json.Unmarshal([]byte(`{"exception": "objectNotFound"}`), &obj))
		assert.Empty(t, obj.ID())
		assert.Nil(t, obj.Properties.Strings(PropName))
	})

	t.Run("NotAnObject", func(t *testing.T) {
		var obj Object
		assert.Error(t, json.Unmarshal([]byte(`["f0a1"]`), &obj))
	})
}

func TestPropertiesDecode(t *testing.T) {
	props := Properties{
		PropObjectID:      "d42",
		PropName:          "contract.pdf",
		PropContentLength: "2048",
		"nemaki:archived": "true",
	}
	var doc struct {
		ID       string `property:"cmis:objectId"`
		Name     string `property:"cmis:name"`
		Size     int64  `property:"cmis:contentStreamLength"`
		Archived bool   `property:"nemaki:archived"`
	}
	require.NoError(t, props.Decode(&doc))
	assert.Equal(t, "d42", doc.ID)
	assert.Equal(t, "contract.pdf", doc.Name)
	assert.EqualValues(t, 2048, doc.Size)
	assert.True(t, doc.Archived)
	assert.True(t, props.Bool("nemaki:archived"))
	assert.EqualValues(t, 2048, props.Int64(PropContentLength))
}

func TestACLShapes(t *testing.T) {
	shapes := map[string]string{
		"TopLevel": `{"aces": [
			{"principal": {"principalId": "admin"}, "permissions": ["cmis:all"], "isDirect": true},
			{"principal": {"principalId": "testuser1"}, "permissions": ["cmis:read"], "isDirect": true},
			{"principal": {"principalId": "GROUP_EVERYONE"}, "permissions": ["cmis:read"], "isDirect": false}
		], "isExact": true}`,
		"Nested": `{"acl": {"aces": [
			{"principal": {"principalId": "admin"}, "permissions": ["cmis:all"], "isDirect": true},
			{"principal": {"principalId": "testuser1"}, "permissions": ["cmis:read"], "isDirect": true},
			{"principal": {"principalId": "GROUP_EVERYONE"}, "permissions": ["cmis:read"], "isDirect": false}
		]}}`,
		"FlatPrincipal": `{"aces": [
			{"principalId": "admin", "permissions": ["cmis:all"]},
			{"principalId": "testuser1", "permissions": ["cmis:read"], "direct": true},
			{"principalId": "GROUP_EVERYONE", "permissions": ["cmis:read"], "direct": false}
		]}`,
	}
	for name, body := range shapes {
		t.Run(name, func(t *testing.T) {
			var acl ACL
			require.NoError(t, json.Unmarshal([]byte(body), &acl))
			require.Len(t, acl.ACEs, 3)
			assert.True(t, acl.Has("testuser1"))
			assert.False(t, acl.Has("testuser2"))
			assert.Equal(t, []string{"cmis:read"}, acl.Permissions("testuser1"))
			assert.Equal(t, []string{"cmis:all"}, acl.DirectPermissions("admin"))
			assert.Empty(t, acl.DirectPermissions(GroupEveryone))
			assert.Equal(t, []string{"GROUP_EVERYONE", "admin", "testuser1"}, acl.Principals())
			assert.True(t, acl.Exact)
		})
	}
}

func TestAtomACL(t *testing.T) {
	acl := &ACL{Exact: true, ACEs: []ACE{
		{Principal: "admin", Permissions: []string{PermissionAll}, Direct: true},
		{Principal: "testuser1", Permissions: []string{PermissionRead, PermissionWrite}, Direct: true},
	}}
	b, err := acl.MarshalAtom()
	require.NoError(t, err)
	assert.Contains(t, string(b), "<cmis:principalId>testuser1</cmis:principalId>")

	parsed, err := ParseAtomACL(b)
	require.NoError(t, err)
	assert.Equal(t, acl, parsed)

	_, err = ParseAtomACL([]byte("<html><body>Internal Server Error"))
	assert.Error(t, err)
}

func TestNameLikeStatement(t *testing.T) {
	assert.Equal(t,
		`SELECT cmis:objectId FROM cmis:folder WHERE cmis:name LIKE 'acl-test-folder-%'`,
		NameLikeStatement(BaseFolder, "acl-test-folder-%"))
	assert.Equal(t,
		`SELECT cmis:objectId FROM cmis:object WHERE cmis:name LIKE 'o\'brien\\%'`,
		NameLikeStatement("", `o'brien\%`))
}

func TestQueryResult(t *testing.T) {
	body := `{"results": [
		{"properties": {"cmis:objectId": {"value": "a"}}},
		{"succinctProperties": {"cmis:objectId": "b"}}
	], "hasMoreItems": true, "numItems": 5}`
	var res QueryResult
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	require.Len(t, res.Results, 2)
	assert.Equal(t, "a", res.Results[0].ID())
	assert.Equal(t, "b", res.Results[1].ID())
	assert.True(t, res.HasMoreItems)
	assert.EqualValues(t, 5, res.NumItems)
}
