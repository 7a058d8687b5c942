package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"hatchery/internal/command"
)

func writeResponse(w io.Writer, format string, resp command.Response) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	var err error
	switch resp.Kind {
	case command.KindCreate, command.KindBreed:
		_, err = fmt.Fprintf(w, "created %d for %s\n", resp.ID, resp.Caller)
	case command.KindTransfer:
		_, err = fmt.Fprintf(w, "transferred %d from %s to %s\n", resp.ID, resp.Caller, resp.Owner)
	case command.KindLookup:
		if !resp.Found {
			_, err = fmt.Fprintf(w, "%d not owned by %s\n", resp.ID, resp.Owner)
			break
		}
		_, err = fmt.Fprintf(w, "%d\t%s\t%s\n", resp.ID, resp.Owner, resp.Creature.Genome)
	case command.KindList:
		for _, entry := range resp.Creatures {
			if _, err = fmt.Fprintf(w, "%d\t%s\n", entry.ID, entry.Creature.Genome); err != nil {
				return err
			}
		}
	case command.KindCount:
		_, err = fmt.Fprintln(w, resp.Count)
	case command.KindOwnerOf:
		if !resp.Found {
			_, err = fmt.Fprintf(w, "%d has no owner\n", resp.ID)
			break
		}
		_, err = fmt.Fprintln(w, resp.Owner)
	case command.KindReserve:
		_, err = fmt.Fprintf(w, "reserved for %s\n", resp.Caller)
	case command.KindRelease:
		_, err = fmt.Fprintf(w, "released for %s, %d not reserved\n", resp.Caller, resp.Remainder)
	case command.KindTransferReserved:
		_, err = fmt.Fprintf(w, "paid reserved funds from %s to %s\n", resp.Caller, resp.Owner)
	default:
		_, err = fmt.Fprintf(w, "%+v\n", resp)
	}
	return err
}
