// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ProjectNotFoundId Id = iota + 1
	ResourceNotFoundId
	ResourceExistsId
	ModuleResourceImmutableId
	ResourceInUseId
	InvalidContentId
	ModuleNotFoundId
	CascadeIncompleteId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation links for the issue type
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	projectNotFoundIssue = &Issue{
		id: ProjectNotFoundId,
		mdMsg: `
# No project found!

We searched for a cardsConfig.json but couldn't find one here or in any
parent directory.

## Things you can try:
- Move into a project directory before running resource commands
- Create a new project in the current directory:
~~~
$ cardkit init
~~~`,
	}

	resourceNotFoundIssue = &Issue{
		id: ResourceNotFoundId,
		mdMsg: `
# Resource not found!

The resource name you specified does not exist in the project.

## Things you can try:
- List the resources of the type you are after:
~~~
$ cardkit show cardTypes
~~~

- Check the name for typos; resource names have the form
  ` + "`prefix/type/identifier`" + `, for example ` + "`myproj/cardTypes/bug`" + `.`,
	}

	resourceExistsIssue = &Issue{
		id: ResourceExistsId,
		mdMsg: `
# Resource already exists!

A resource with that name is already part of the project.

## Things you can try:
- Pick a different identifier
- Show the existing resource:
~~~
$ cardkit show <name>
~~~

- Rename the existing resource out of the way:
~~~
$ cardkit rename <name> <new-name>
~~~`,
	}

	moduleResourceImmutableIssue = &Issue{
		id: ModuleResourceImmutableId,
		mdMsg: `
# Module resources are read-only!

The resource you tried to change was imported from a module. Imported
resources can be used by the project, but never updated, renamed or
deleted in place.

## Things you can try:
- Change the resource in the module's own project and re-import it
- Remove the module if you no longer need its resources:
~~~
$ cardkit module remove <name>
~~~`,
	}

	resourceInUseIssue = &Issue{
		id: ResourceInUseId,
		mdMsg: `
# Resource is in use!

The resource cannot be deleted because cards or other resources still
reference it. The error message lists every blocking reference.

## Things you can try:
- Inspect the referencing cards and resources and retarget them
- Rename the resource instead; renames cascade into the references:
~~~
$ cardkit rename <name> <new-name>
~~~`,
	}

	invalidContentIssue = &Issue{
		id: InvalidContentId,
		mdMsg: `
# Invalid resource content!

The content document does not match the schema for its resource type.

## Common issues:
- Unknown property names (schemas are closed)
- A resource reference that is not of the form prefix/type/identifier
- A missing required property

## Things you can try:
- Check the validation message above for the offending property
- Validate without writing:
~~~
$ cardkit validate <name>
~~~`,
	}

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# Module not found!

The module you referenced is not imported into this project.

## Things you can try:
- List the imported modules:
~~~
$ cardkit module list
~~~

- Import the module from its source directory:
~~~
$ cardkit module import <path>
~~~`,
	}

	cascadeIncompleteIssue = &Issue{
		id: CascadeIncompleteId,
		mdMsg: `
# Rename cascade did not finish!

The resource was renamed, but updating its references failed part way.
There is no rollback; the error message names the steps that already
ran.

## Things you can try:
- Fix the underlying failure (commonly a permission or disk problem)
- Re-run the rename in the reverse direction and then forward again to
  re-apply the cascade
- Search for the old name to find references the cascade did not reach:
~~~
$ grep -r "<old-name>" .
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the cardkit configuration file.

## Configuration file locations:
- Linux: ~/.config/cardkit/config.json
- macOS: ~/Library/Application Support/cardkit/config.json
- Windows: %APPDATA%\cardkit\config.json

## Things you can try:
- Check the configuration syntax
- Remove the config file to use defaults:
~~~
$ rm ~/.config/cardkit/config.json
~~~`,
	}

	issues = map[Id]*Issue{
		projectNotFoundIssue.Id():         projectNotFoundIssue,
		resourceNotFoundIssue.Id():        resourceNotFoundIssue,
		resourceExistsIssue.Id():          resourceExistsIssue,
		moduleResourceImmutableIssue.Id(): moduleResourceImmutableIssue,
		resourceInUseIssue.Id():           resourceInUseIssue,
		invalidContentIssue.Id():          invalidContentIssue,
		moduleNotFoundIssue.Id():          moduleNotFoundIssue,
		cascadeIncompleteIssue.Id():       cascadeIncompleteIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
