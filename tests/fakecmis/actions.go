package fakecmis

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nemakiware/cmis-fixture/pkg/cmis"
	"github.com/nemakiware/cmis-fixture/pkg/form"
	"github.com/nemakiware/cmis-fixture/pkg/utils"
)

func (s *Server) action(c echo.Context) error {
	if err := s.checkRepository(c); err != nil {
		return err
	}
	d, err := form.DecodeRequest(c.Request())
	if err != nil {
		return cmisError(c, http.StatusBadRequest, cmis.ExceptionInvalidArgument, err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(c, d.Action, d)

	switch d.Action {
	case cmis.ActionCreateFolder:
		return s.create(c, d, cmis.BaseFolder)
	case cmis.ActionCreateDocument:
		return s.create(c, d, cmis.BaseDocument)
	case cmis.ActionDelete:
		return s.deleteObject(c, d)
	case cmis.ActionDeleteTree:
		return s.deleteTree(c, d)
	case cmis.ActionCreateType:
		return s.createType(c, d)
	case cmis.ActionDeleteType:
		return s.deleteType(c, d)
	case cmis.ActionApplyACL:
		return s.applyACL(c, d)
	case "":
		return cmisError(c, http.StatusBadRequest, cmis.ExceptionInvalidArgument, "Missing cmisaction")
	}
	return cmisError(c, http.StatusBadRequest, cmis.ExceptionNotSupported, "Unsupported action "+d.Action)
}

// target returns the object designated by the objectId field. It must be
// called with the lock held.
func (s *Server) target(c echo.Context, d *form.Decoded, field string, write bool) (*object, error) {
	id := d.Fields.Get(field)
	if id == "" && field == "objectId" {
		id = d.Fields.Get("folderId")
	}
	obj, ok := s.objects[id]
	if !ok {
		return nil, cmisError(c, http.StatusNotFound, cmis.ExceptionObjectNotFound, "Object not found: "+id)
	}
	if !s.allowed(principal(c), obj, write) {
		return nil, cmisError(c, http.StatusForbidden, cmis.ExceptionPermissionDenied, "Permission denied on "+id)
	}
	return obj, nil
}

// create must be called with the lock held.
func (s *Server) create(c echo.Context, d *form.Decoded, base string) error {
	parent, err := s.target(c, d, "objectId", true)
	if parent == nil {
		return err
	}
	if parent.baseType != cmis.BaseFolder {
		return cmisError(c, http.StatusBadRequest, cmis.ExceptionInvalidArgument, "Parent is not a folder: "+parent.id)
	}
	name := d.PropertyValue(cmis.PropName)
	if name == "" {
		return cmisError(c, http.StatusBadRequest, cmis.ExceptionConstraint, "cmis:name is required")
	}
	typeID := d.PropertyValue(cmis.PropObjectTypeID)
	if typeID == "" {
		typeID = base
	}
	def, ok := s.types[typeID]
	if !ok || def.BaseID != base {
		return cmisError(c, http.StatusBadRequest, cmis.ExceptionConstraint, "Invalid type "+typeID+" for "+d.Action)
	}
	for _, sibling := range s.children(parent.id) {
		if sibling.name == name {
			return cmisError(c, http.StatusConflict, cmis.ExceptionNameConstraint, "An object named "+name+" already exists")
		}
	}

	obj := s.insert(parent.id, name, typeID, base, principal(c))
	if d.Content != nil {
		b, err := io.ReadAll(d.Content.Body)
		if err != nil {
			return err
		}
		obj.content = b
		obj.mimeType = d.Content.MimeType
		obj.filename = d.Content.Filename
	}
	return c.JSON(http.StatusCreated, s.renderObject(obj, s.succinctFor(c)))
}

// deleteObject must be called with the lock held.
func (s *Server) deleteObject(c echo.Context, d *form.Decoded) error {
	obj, err := s.target(c, d, "objectId", true)
	if obj == nil {
		return err
	}
	if obj.id == s.rootID {
		return cmisError(c, http.StatusConflict, cmis.ExceptionConstraint, "The root folder cannot be deleted")
	}
	if f, ok := s.deleteFailures[obj.id]; ok {
		return c.Blob(f.status, echo.MIMEApplicationJSONCharsetUTF8, []byte(f.body))
	}
	if len(s.children(obj.id)) > 0 {
		return cmisError(c, http.StatusConflict, cmis.ExceptionConstraint, "The folder is not empty")
	}
	delete(s.objects, obj.id)
	return c.NoContent(http.StatusOK)
}

// deleteTree must be called with the lock held.
func (s *Server) deleteTree(c echo.Context, d *form.Decoded) error {
	obj, err := s.target(c, d, "objectId", true)
	if obj == nil {
		return err
	}
	if obj.baseType != cmis.BaseFolder {
		return cmisError(c, http.StatusBadRequest, cmis.ExceptionInvalidArgument, "Not a folder: "+obj.id)
	}
	if obj.id == s.rootID {
		return cmisError(c, http.StatusConflict, cmis.ExceptionConstraint, "The root folder cannot be deleted")
	}
	if f, ok := s.deleteFailures[obj.id]; ok {
		return c.Blob(f.status, echo.MIMEApplicationJSONCharsetUTF8, []byte(f.body))
	}
	var failed []string
	s.removeTree(obj, &failed)
	if len(failed) == 0 {
		return c.NoContent(http.StatusOK)
	}
	return c.JSON(http.StatusOK, echo.Map{"ids": failed})
}

// removeTree deletes the descendants first, and keeps the folders that
// still have a child. It returns true if obj was deleted.
func (s *Server) removeTree(obj *object, failed *[]string) bool {
	kept := false
	for _, child := range s.children(obj.id) {
		if !s.removeTree(child, failed) {
			kept = true
		}
	}
	if _, ok := s.deleteFailures[obj.id]; ok || kept {
		*failed = append(*failed, obj.id)
		return false
	}
	delete(s.objects, obj.id)
	return true
}

// createType must be called with the lock held.
func (s *Server) createType(c echo.Context, d *form.Decoded) error {
	if principal(c) != AdminUser {
		return cmisError(c, http.StatusForbidden, cmis.ExceptionPermissionDenied, "Admin only")
	}
	var def cmis.TypeDefinition
	if err := json.Unmarshal([]byte(d.Fields.Get("type")), &def); err != nil || def.ID == "" {
		return cmisError(c, http.StatusBadRequest, cmis.ExceptionInvalidArgument, "Invalid type definition")
	}
	if _, ok := s.types[def.ID]; ok {
		return cmisError(c, http.StatusConflict, cmis.ExceptionContentAlreadyExists, "Type "+def.ID+" already exists")
	}
	parent, ok := s.types[def.ParentID]
	if !ok {
		return cmisError(c, http.StatusBadRequest, cmis.ExceptionInvalidArgument, "Unknown parent type "+def.ParentID)
	}
	def.BaseID = parent.BaseID
	s.types[def.ID] = &def
	return c.JSON(http.StatusCreated, &def)
}

// deleteType must be called with the lock held.
func (s *Server) deleteType(c echo.Context, d *form.Decoded) error {
	if principal(c) != AdminUser {
		return cmisError(c, http.StatusForbidden, cmis.ExceptionPermissionDenied, "Admin only")
	}
	typeID := d.Fields.Get("typeId")
	def, ok := s.types[typeID]
	if !ok {
		return cmisError(c, http.StatusNotFound, cmis.ExceptionObjectNotFound, "Type not found: "+typeID)
	}
	if def.BaseID == def.ID {
		return cmisError(c, http.StatusConflict, cmis.ExceptionConstraint, "Base types cannot be deleted")
	}
	for _, other := range s.types {
		if other.ParentID == typeID {
			return cmisError(c, http.StatusConflict, cmis.ExceptionConstraint, "Type "+typeID+" has subtypes")
		}
	}
	for _, obj := range s.objects {
		if obj.typeID == typeID {
			return cmisError(c, http.StatusConflict, cmis.ExceptionConstraint, "Objects of type "+typeID+" exist")
		}
	}
	delete(s.types, typeID)
	return c.NoContent(http.StatusOK)
}

// applyACL removes, then adds, the direct entries of the object. An entry
// left without permission is removed from the list. It must be called with
// the lock held.
func (s *Server) applyACL(c echo.Context, d *form.Decoded) error {
	obj, err := s.target(c, d, "objectId", true)
	if obj == nil {
		return err
	}
	for _, rm := range d.RemoveACEs {
		for _, a := range obj.acl {
			if a.direct && a.principal == rm.Principal {
				a.permissions = without(a.permissions, rm.Permissions)
			}
		}
	}
	kept := obj.acl[:0]
	for _, a := range obj.acl {
		if !a.direct || len(a.permissions) > 0 {
			kept = append(kept, a)
		}
	}
	obj.acl = kept
	for _, add := range d.AddACEs {
		var entry *ace
		for _, a := range obj.acl {
			if a.direct && a.principal == add.Principal {
				entry = a
			}
		}
		if entry == nil {
			entry = &ace{principal: add.Principal, direct: true}
			obj.acl = append(obj.acl, entry)
		}
		entry.permissions = utils.UniqueStrings(append(entry.permissions, add.Permissions...))
	}
	return c.JSON(http.StatusOK, s.renderACL(obj))
}

func without(perms, removed []string) []string {
	var out []string
	for _, p := range perms {
		if !utils.IsInArray(p, removed) {
			out = append(out, p)
		}
	}
	return out
}
