package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/brettbedarf/nstree/namespace"
)

func newTreeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tree <fixture>",
		Short: "Print every root of the fixture as an indented tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := a.loadTree(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, root := range tree.Roots() {
				printTree(out, root, 0)
			}
			return nil
		},
	}
}

func printTree(w io.Writer, n namespace.Node, depth int) {
	fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), describe(n))
	if d, ok := n.(*namespace.Directory); ok {
		for _, child := range d.Traversal().All() {
			printTree(w, child, depth+1)
		}
	}
}

// describe renders a single tree line, i.e. "file1.txt (100 B) [ro]"
func describe(n namespace.Node) string {
	var b strings.Builder
	switch n := n.(type) {
	case *namespace.Directory:
		b.WriteString(n.Name() + "/")
	case *namespace.File:
		fmt.Fprintf(&b, "%s.%s (%s)", n.Name(), n.FileType().Extension(), humanize.IBytes(uint64(n.Size())))
	case *namespace.Link:
		b.WriteString(n.Name() + " -> ")
		if target := n.Target(); target != nil {
			b.WriteString(target.AbsolutePath())
		}
		if !n.IsValid() {
			b.WriteString(" (stale)")
		}
	}
	if w, ok := n.(namespace.Writable); ok && !w.IsWritable() {
		b.WriteString(" [ro]")
	}
	return b.String()
}

func newLsCmd(a *app) *cobra.Command {
	var rootName string
	cmd := &cobra.Command{
		Use:   "ls <fixture>",
		Short: "List the children of a root directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := a.loadTree(args[0])
			if err != nil {
				return err
			}
			root, err := findRoot(tree, rootName)
			if err != nil {
				return err
			}
			dir, ok := root.(*namespace.Directory)
			if !ok {
				return fmt.Errorf("%q is a %s, not a directory", root.Name(), root.Type())
			}
			renderListing(cmd.OutOrStdout(), dir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&rootName, rootFlagName, "r", "", "name of the root directory to list")
	cobra.CheckErr(cmd.MarkFlagRequired(rootFlagName))
	return cmd
}

func renderListing(w io.Writer, dir *namespace.Directory) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Name", "Type", "Size", "Writable", "Modified"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)

	var total int64
	for i, n := range dir.Traversal().All() {
		size := n.TotalDiskUsage()
		total += size
		writable := "-"
		if wn, ok := n.(namespace.Writable); ok {
			writable = fmt.Sprintf("%t", wn.IsWritable())
		}
		modified := "never"
		if mtime, ok := n.ModificationTime(); ok {
			modified = humanize.Time(mtime)
		}
		table.Append([]string{
			fmt.Sprintf("%d", i),
			n.Name(),
			string(n.Type()),
			humanize.IBytes(uint64(size)),
			writable,
			modified,
		})
	}
	table.SetFooter([]string{"", fmt.Sprintf("%d items", dir.ChildCount()), "", humanize.IBytes(uint64(total)), "", ""})
	table.Render()
}

func newDuCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "du <fixture>",
		Short: "Print the disk usage of every root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := a.loadTree(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var total int64
			for _, root := range tree.Roots() {
				usage := root.TotalDiskUsage()
				total += usage
				fmt.Fprintf(out, "%-10s %s\n", humanize.IBytes(uint64(usage)), root.AbsolutePath())
			}
			fmt.Fprintf(out, "%-10s total\n", humanize.IBytes(uint64(total)))
			return nil
		},
	}
}

func newStatCmd(a *app) *cobra.Command {
	var rootName string
	cmd := &cobra.Command{
		Use:   "stat <fixture>",
		Short: "Print the attributes of a root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := a.loadTree(args[0])
			if err != nil {
				return err
			}
			root, err := findRoot(tree, rootName)
			if err != nil {
				return err
			}
			attr := root.Attr()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "  Path: %s\n", root.AbsolutePath())
			fmt.Fprintf(out, "  UUID: %s\n", root.UUID())
			fmt.Fprintf(out, " Inode: %d\n", attr.Ino)
			fmt.Fprintf(out, "  Mode: %#o\n", attr.Mode)
			fmt.Fprintf(out, " Links: %d\n", attr.Nlink)
			fmt.Fprintf(out, "  Size: %s (%d blocks)\n", humanize.IBytes(attr.Size), attr.Blocks)
			fmt.Fprintf(out, "Change: %s\n", namespace.AttrTime(attr.Ctime, attr.Ctimensec).Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Modify: %s\n", namespace.AttrTime(attr.Mtime, attr.Mtimensec).Format("2006-01-02 15:04:05"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&rootName, rootFlagName, "r", "", "name of the root to stat")
	cobra.CheckErr(cmd.MarkFlagRequired(rootFlagName))
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <fixture>",
		Short: "Verify the structural invariants of the loaded tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := a.loadTree(args[0])
			if err != nil {
				return err
			}
			if err := tree.Check(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d nodes\n", tree.Len())
			return nil
		},
	}
}
