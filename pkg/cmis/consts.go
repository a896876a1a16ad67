// Package cmis holds the CMIS vocabulary used by the fixtures and the
// normalization of the server responses into a single canonical shape.
package cmis

// Actions sent as cmisaction in a POST.
const (
	ActionCreateDocument = "createDocument"
	ActionCreateFolder   = "createFolder"
	ActionCreateType     = "createType"
	ActionDeleteType     = "deleteType"
	ActionDelete         = "delete"
	ActionDeleteTree     = "deleteTree"
	ActionApplyACL       = "applyACL"
)

// Selectors sent as cmisselector in a GET.
const (
	SelectorRepositoryInfo = "repositoryInfo"
	SelectorObject         = "object"
	SelectorChildren       = "children"
	SelectorQuery          = "query"
	SelectorACL            = "acl"
	SelectorTypeDefinition = "typeDefinition"
)

// Base types, usable in the FROM clause of a query.
const (
	BaseDocument = "cmis:document"
	BaseFolder   = "cmis:folder"
	BaseObject   = "cmis:object"
	BaseItem     = "cmis:item"
)

// Property ids.
const (
	PropObjectID          = "cmis:objectId"
	PropName              = "cmis:name"
	PropObjectTypeID      = "cmis:objectTypeId"
	PropBaseTypeID        = "cmis:baseTypeId"
	PropPath              = "cmis:path"
	PropParentID          = "cmis:parentId"
	PropCreatedBy         = "cmis:createdBy"
	PropContentLength     = "cmis:contentStreamLength"
	PropContentMimeType   = "cmis:contentStreamMimeType"
	PropContentFileName   = "cmis:contentStreamFileName"
	PropSecondaryTypeIDs  = "cmis:secondaryObjectTypeIds"
	PropLastModifiedBy    = "cmis:lastModifiedBy"
	PropChangeToken       = "cmis:changeToken"
	PropVersionSeriesID   = "cmis:versionSeriesId"
	PropIsLatestVersion   = "cmis:isLatestVersion"
	PropCreationDate      = "cmis:creationDate"
	PropLastModification  = "cmis:lastModificationDate"
	PropDescription       = "cmis:description"
	PropAllowedChildTypes = "cmis:allowedChildObjectTypeIds"
)

// Basic permissions.
const (
	PermissionRead  = "cmis:read"
	PermissionWrite = "cmis:write"
	PermissionAll   = "cmis:all"
)

// GroupEveryone is the principal of the built-in group of all users on
// NemakiWare.
const GroupEveryone = "GROUP_EVERYONE"

// ACL propagation modes of an applyACL action.
const (
	PropagationObjectOnly           = "objectonly"
	PropagationPropagate            = "propagate"
	PropagationRepositoryDetermined = "repositorydetermined"
)

// Exception names of the JSON errors of the Browser Binding.
const (
	ExceptionInvalidArgument      = "invalidArgument"
	ExceptionNotSupported         = "notSupported"
	ExceptionObjectNotFound       = "objectNotFound"
	ExceptionPermissionDenied     = "permissionDenied"
	ExceptionRuntime              = "runtime"
	ExceptionConstraint           = "constraint"
	ExceptionContentAlreadyExists = "contentAlreadyExists"
	ExceptionNameConstraint       = "nameConstraintViolation"
	ExceptionStorage              = "storage"
	ExceptionUpdateConflict       = "updateConflict"
	ExceptionUnauthorized         = "unauthorized"
)
