// Package scope tracks the shared variable scope of the drafts in focus.
//
// A Resolver is handed to drafts controllers as their ScopeResolver. On
// every focus change it loads the context the entity refers to, directly
// or through its parent collection, and keeps it as the active scope of
// that entity kind. Expand substitutes {{name}} placeholders from the
// active scope.
package scope
